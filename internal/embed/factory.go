package embed

import (
	"context"
	"strings"

	"github.com/alexgetty/roux/internal/rerrors"
)

// ProviderKind is the configured embedding capability, per
// providers.embedding.kind in the engine configuration.
type ProviderKind string

const (
	// KindLocal uses a locally-running embedding server (Ollama).
	KindLocal ProviderKind = "local"

	// KindStatic uses the dependency-free hash-based embedder: lower
	// recall than a real model, but available offline with no server to
	// run, for vaults that want semantic search without Ollama.
	KindStatic ProviderKind = "static"

	// KindNone disables embedding entirely: semantic search and
	// resolve_nodes semantic strategy are unavailable, and the backfill
	// pass is skipped.
	KindNone ProviderKind = "none"
)

// ParseProviderKind parses a config string into a ProviderKind, defaulting
// to KindNone for anything unrecognised.
func ParseProviderKind(s string) ProviderKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return KindLocal
	case "static":
		return KindStatic
	default:
		return KindNone
	}
}

// NewProvider builds the Embedder for the given kind. KindNone returns
// (nil, nil): callers must treat a nil Embedder as "no embedding
// capability configured" rather than an error. A non-empty model
// overrides the provider's default model name; it has no effect on
// KindStatic, which has no model to select.
func NewProvider(ctx context.Context, kind ProviderKind, model string) (Embedder, error) {
	switch kind {
	case KindLocal:
		cfg := DefaultOllamaConfig()
		if model != "" {
			cfg.Model = model
		}
		embedder, err := NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, rerrors.Provider("embedding provider unavailable", err)
		}
		return NewCachedEmbedderWithDefaults(embedder), nil
	case KindStatic:
		return NewCachedEmbedderWithDefaults(NewStaticEmbedder()), nil
	case KindNone:
		return nil, nil
	default:
		return nil, rerrors.Invalid("unknown embedding provider kind").WithDetail("kind", string(kind))
	}
}
