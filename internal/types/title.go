package types

import (
	"path"
	"strings"
)

// TitleFromID derives a display title from a node id: the basename with
// its extension stripped and '-'/'_' separators replaced by spaces.
func TitleFromID(id string) string {
	base := path.Base(id)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return base
}
