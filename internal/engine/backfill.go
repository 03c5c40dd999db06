package engine

import (
	"context"

	"github.com/alexgetty/roux/internal/async"
	"github.com/alexgetty/roux/internal/rerrors"
)

// Backfill embeds every real node whose stored embedding is missing or
// was produced by a different model than the one currently configured.
// Each node's embed call is wrapped in the circuit breaker so a run of
// provider failures stops hammering it instead of churning through the
// rest of the vault; a tripped breaker ends the pass early rather than
// failing it, since a partial backfill is still useful and the next
// sync will retry whatever is left.
func (e *Engine) Backfill(ctx context.Context) error {
	if e.embedder == nil {
		return nil
	}

	all, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return rerrors.Provider("load nodes for backfill", err)
	}

	model := e.cfg.Providers.Embedding.Model

	var pending []string
	for _, n := range all {
		if n.Ghost || n.Content == nil {
			continue
		}
		existingModel, ok, err := e.vidx.GetModel(ctx, n.ID)
		if err != nil {
			return rerrors.Provider("check existing embedding", err).WithDetail("id", n.ID)
		}
		if ok && existingModel == model {
			continue
		}
		pending = append(pending, n.ID)
	}

	e.progress.SetStage(async.StageBackfilling, 0)
	e.progress.SetEmbeddingsTotal(len(pending))
	byID := make(map[string]string, len(all))
	for _, n := range all {
		if n.Content != nil {
			byID[n.ID] = *n.Content
		}
	}

	for i, id := range pending {
		content := byID[id]
		err := e.backfillBrk.Execute(func() error {
			vec, err := e.embedder.Embed(ctx, content)
			if err != nil {
				return err
			}
			return e.vidx.Store(ctx, id, vec, model)
		})
		if err != nil {
			if err == rerrors.ErrBreakerOpen {
				e.log.Warn("embedding circuit open, ending backfill pass early", "remaining", len(pending)-i)
				break
			}
			e.log.Warn("failed to backfill embedding", "id", id, "error", err)
		}
		e.progress.UpdateEmbeddings(i + 1)
	}

	e.progress.SetReady()
	return nil
}
