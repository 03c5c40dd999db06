package engine

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/types"
)

// writeNodeFile serializes n's frontmatter (title, tags, properties) and
// content to disk at cfg.Source.Path/n.ID, the inverse of the reader
// package's parse. Directories are created as needed.
func (e *Engine) writeNodeFile(n *types.Node) error {
	abs := filepath.Join(e.cfg.Source.Path, n.ID)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return rerrors.Provider("create node directory", err).WithDetail("id", n.ID)
	}

	fm := make(map[string]any, len(n.Properties)+2)
	for k, v := range n.Properties {
		fm[k] = v
	}
	fm["title"] = n.Title
	if len(n.Tags) > 0 {
		fm["tags"] = n.Tags
	}

	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return rerrors.Provider("marshal frontmatter", err).WithDetail("id", n.ID)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fmBytes)
	buf.WriteString("---\n")
	if n.Content != nil {
		buf.WriteString(*n.Content)
	}

	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return rerrors.Provider("write node file", err).WithDetail("id", n.ID)
	}
	return nil
}

// removeNodeFile deletes the node's backing file. A missing file is not
// an error: the caller's view of "deleted" only cares about the cache
// row and embedding.
func (e *Engine) removeNodeFile(id string) error {
	abs := filepath.Join(e.cfg.Source.Path, id)
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return rerrors.Provider("remove node file", err).WithDetail("id", id)
	}
	return nil
}
