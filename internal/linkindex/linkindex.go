// Package linkindex normalizes raw wiki-link targets and resolves them
// against the set of known node ids, including bare-basename lookups
// ([[foo]] resolving to subdir/foo.md).
package linkindex

import (
	"regexp"
	"sort"
	"strings"
)

// extensionHeuristic matches a final path segment ending in ".xyz" where
// xyz is 1-4 alphanumerics containing at least one letter, good enough
// to tell "notes/page.v2" (kept as is) apart from "notes/page" or
// "archive.2024" (both get .md appended) without a real extension table.
var extensionHeuristic = regexp.MustCompile(`\.[A-Za-z0-9]{1,4}$`)

var hasLetter = regexp.MustCompile(`[A-Za-z]`)

// Normalize lowercases a raw wiki-link target, converts backslashes to
// forward slashes, and appends ".md" if the final segment doesn't look
// like it already carries a file extension.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, `\`, "/")

	if m := extensionHeuristic.FindString(s); m != "" && hasLetter.MatchString(m) {
		return s
	}
	return s + ".md"
}

// BuildBasenameIndex groups node ids by their final '/'-separated
// segment, for resolving bare wiki-links like [[foo]] against
// subdir/foo.md.
func BuildBasenameIndex(ids []string) map[string][]string {
	idx := make(map[string][]string)
	for _, id := range ids {
		base := basename(id)
		idx[base] = append(idx[base], id)
	}
	for _, list := range idx {
		sort.Strings(list)
	}
	return idx
}

func basename(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// ResolveLinks maps each raw link target to a final node id:
//  1. normalize it
//  2. if it's already a valid node id, keep it
//  3. else if it contains a '/', keep it (treated as a path to a possible ghost)
//  4. else look it up in basenameIndex; substitute only on an unambiguous
//     single match, otherwise keep the normalized form as-is
//
// Input order and duplicates are preserved; downstream callers dedup.
func ResolveLinks(rawLinks []string, basenameIndex map[string][]string, validIDs map[string]bool) []string {
	resolved := make([]string, 0, len(rawLinks))
	for _, raw := range rawLinks {
		norm := Normalize(raw)

		if validIDs[norm] {
			resolved = append(resolved, norm)
			continue
		}
		if strings.Contains(norm, "/") {
			resolved = append(resolved, norm)
			continue
		}

		candidates := basenameIndex[norm]
		if len(candidates) == 1 {
			resolved = append(resolved, candidates[0])
			continue
		}
		resolved = append(resolved, norm)
	}
	return resolved
}
