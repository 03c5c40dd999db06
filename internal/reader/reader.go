// Package reader turns a markdown file's raw bytes into a node record:
// frontmatter, title, tags, properties, content, and raw outgoing links.
package reader

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/alexgetty/roux/internal/linkindex"
	"github.com/alexgetty/roux/internal/types"
	"gopkg.in/yaml.v3"
)

// FileContext describes the provenance of the bytes being read.
type FileContext struct {
	AbsolutePath string
	RelativePath string
	Extension    string
	Mtime        time.Time
}

var (
	frontmatterPattern = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?`)
	codeFencePattern   = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern  = regexp.MustCompile("`[^`\n]+`")
	wikilinkPattern    = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)
)

// Read parses raw markdown bytes into a node record. It never fails the
// pipeline: a frontmatter parse error degrades to a path-derived title
// with empty tags/properties and the full original bytes as content, and
// logs a warning through log.
func Read(raw []byte, ctx FileContext, log *slog.Logger) *types.Node {
	text := string(raw)

	fm, body, ok := splitFrontmatter(text)

	title := types.TitleFromID(ctx.RelativePath)
	var tags []string
	properties := map[string]any{}
	content := body

	if ok {
		var parsed map[string]any
		if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
			if log != nil {
				log.Warn("frontmatter parse failed, falling back to raw content",
					"path", ctx.RelativePath, "error", err)
			}
			content = text
		} else {
			if t, isString := parsed["title"].(string); isString {
				title = t
			}
			tags = extractTags(parsed["tags"])
			properties = extractProperties(parsed)
		}
	}

	rawLinks := extractWikilinks(content)

	normalized := make([]string, 0, len(rawLinks))
	for _, l := range rawLinks {
		normalized = append(normalized, linkindex.Normalize(l))
	}
	normalized = dedupPreserveOrder(normalized)

	contentCopy := content
	return &types.Node{
		ID:            ctx.RelativePath,
		Title:         title,
		Content:       &contentCopy,
		Tags:          tags,
		OutgoingLinks: normalized,
		Properties:    properties,
		SourceRef: &types.SourceRef{
			Kind:         "file",
			Path:         ctx.AbsolutePath,
			LastModified: ctx.Mtime,
		},
	}
}

// splitFrontmatter separates a leading "---\n...\n---" YAML block from
// the remaining body. ok is false if no frontmatter block is present.
func splitFrontmatter(text string) (frontmatter, body string, ok bool) {
	m := frontmatterPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return "", text, false
	}
	frontmatter = text[m[2]:m[3]]
	body = text[m[1]:]
	return frontmatter, body, true
}

func extractTags(raw any) []string {
	list, isList := raw.([]any)
	if !isList {
		return nil
	}
	tags := make([]string, 0, len(list))
	for _, v := range list {
		if s, isString := v.(string); isString {
			tags = append(tags, s)
		}
	}
	return tags
}

func extractProperties(parsed map[string]any) map[string]any {
	props := make(map[string]any, len(parsed))
	for k, v := range parsed {
		if k == "title" || k == "tags" {
			continue
		}
		props[k] = v
	}
	return props
}

// extractWikilinks scans body for [[target]] / [[target|display]],
// skipping occurrences inside fenced or inline code, and returns the raw
// (un-normalized) targets in first-occurrence order with no duplicates.
func extractWikilinks(body string) []string {
	excluded := codeRanges(body)

	matches := wikilinkPattern.FindAllStringSubmatchIndex(body, -1)
	var raw []string
	for _, m := range matches {
		start := m[0]
		if inAnyRange(start, excluded) {
			continue
		}
		target := strings.TrimSpace(body[m[2]:m[3]])
		if target == "" {
			continue
		}
		raw = append(raw, target)
	}
	return dedupPreserveOrder(raw)
}

type byteRange struct{ start, end int }

func codeRanges(body string) []byteRange {
	var ranges []byteRange
	for _, m := range codeFencePattern.FindAllStringIndex(body, -1) {
		ranges = append(ranges, byteRange{m[0], m[1]})
	}
	for _, m := range inlineCodePattern.FindAllStringIndex(body, -1) {
		if inAnyRange(m[0], ranges) {
			continue
		}
		ranges = append(ranges, byteRange{m[0], m[1]})
	}
	return ranges
}

func inAnyRange(pos int, ranges []byteRange) bool {
	for _, r := range ranges {
		if pos >= r.start && pos < r.end {
			return true
		}
	}
	return false
}

func dedupPreserveOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
