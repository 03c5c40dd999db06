package engine

import (
	"context"
	"strings"

	"github.com/alexgetty/roux/internal/rerrors"
	"github.com/alexgetty/roux/internal/types"
)

// Strategy selects the matching algorithm ResolveNodes uses.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategyFuzzy    Strategy = "fuzzy"
	StrategySemantic Strategy = "semantic"
)

const defaultFuzzyThreshold = 0.7

// ResolveOptions narrows the candidate set and configures matching.
type ResolveOptions struct {
	Strategy  Strategy
	Threshold float64
	Tag       string
	Path      string
}

// ResolveResult is one resolved query: its best match id (or empty for
// no match) and the match score.
type ResolveResult struct {
	Query string
	Match string
	Score float64
}

// ResolveNodes matches each name against the candidate set (after
// applying the optional tag/path filters), using the selected strategy.
// Ties are broken by the lexicographically smallest id.
func (e *Engine) ResolveNodes(ctx context.Context, names []string, opts ResolveOptions) ([]ResolveResult, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyExact
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = defaultFuzzyThreshold
	}

	candidates, err := e.candidateNodes(ctx, opts.Tag, opts.Path)
	if err != nil {
		return nil, err
	}

	results := make([]ResolveResult, 0, len(names))
	for _, name := range names {
		var r ResolveResult
		switch opts.Strategy {
		case StrategyFuzzy:
			r = resolveFuzzy(name, candidates, threshold)
		case StrategySemantic:
			r, err = e.resolveSemantic(ctx, name, candidates, threshold)
			if err != nil {
				return nil, err
			}
		default:
			r = resolveExact(name, candidates)
		}
		r.Query = name
		results = append(results, r)
	}
	return results, nil
}

func (e *Engine) candidateNodes(ctx context.Context, tag, path string) ([]*types.Node, error) {
	all, err := e.cache.GetAllNodes(ctx)
	if err != nil {
		return nil, rerrors.Provider("load candidate nodes", err)
	}

	out := make([]*types.Node, 0, len(all))
	for _, n := range all {
		if n.Ghost {
			continue
		}
		if tag != "" && !hasTag(n.Tags, tag) {
			continue
		}
		if path != "" && !strings.HasPrefix(n.ID, strings.ToLower(path)) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func resolveExact(name string, candidates []*types.Node) ResolveResult {
	var best *types.Node
	for _, n := range candidates {
		if !strings.EqualFold(n.Title, name) {
			continue
		}
		if best == nil || n.ID < best.ID {
			best = n
		}
	}
	if best == nil {
		return ResolveResult{Match: "", Score: 0}
	}
	return ResolveResult{Match: best.ID, Score: 1}
}

func resolveFuzzy(name string, candidates []*types.Node, threshold float64) ResolveResult {
	target := strings.ToLower(name)

	type scored struct {
		id    string
		score float64
	}
	var best *scored
	for _, n := range candidates {
		score := diceCoefficient(target, strings.ToLower(n.Title))
		if score < threshold {
			continue
		}
		if best == nil || score > best.score || (score == best.score && n.ID < best.id) {
			best = &scored{id: n.ID, score: score}
		}
	}
	if best == nil {
		return ResolveResult{Match: "", Score: 0}
	}
	return ResolveResult{Match: best.id, Score: best.score}
}

// resolveSemantic embeds the query and compares it by cosine similarity
// against every candidate's stored embedding. Returns a null match (not
// an error) when no embedding provider is configured.
func (e *Engine) resolveSemantic(ctx context.Context, name string, candidates []*types.Node, threshold float64) (ResolveResult, error) {
	if e.embedder == nil {
		return ResolveResult{Match: "", Score: 0}, nil
	}

	qv, err := e.embedder.Embed(ctx, name)
	if err != nil {
		return ResolveResult{}, rerrors.Provider("embed resolve query", err)
	}

	allowed := make(map[string]bool, len(candidates))
	for _, n := range candidates {
		allowed[n.ID] = true
	}

	results, err := e.vidx.Search(ctx, qv, len(candidates))
	if err != nil {
		return ResolveResult{}, rerrors.Provider("semantic candidate search", err)
	}

	var bestID string
	bestScore := -1.0
	for _, r := range results {
		if !allowed[r.ID] {
			continue
		}
		score := 1 - r.Distance
		if score < threshold {
			continue
		}
		if score > bestScore || (score == bestScore && r.ID < bestID) {
			bestID = r.ID
			bestScore = score
		}
	}
	if bestID == "" {
		return ResolveResult{Match: "", Score: 0}, nil
	}
	return ResolveResult{Match: bestID, Score: bestScore}, nil
}

// diceCoefficient computes Sorensen-Dice bigram similarity between two
// strings, in [0,1].
func diceCoefficient(a, b string) float64 {
	if a == b {
		return 1
	}
	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}

	counts := make(map[string]int, len(bigramsA))
	for _, bg := range bigramsA {
		counts[bg]++
	}

	matches := 0
	for _, bg := range bigramsB {
		if counts[bg] > 0 {
			counts[bg]--
			matches++
		}
	}

	return 2 * float64(matches) / float64(len(bigramsA)+len(bigramsB))
}

func bigrams(s string) []string {
	r := []rune(s)
	if len(r) < 2 {
		return nil
	}
	out := make([]string, 0, len(r)-1)
	for i := 0; i+1 < len(r); i++ {
		out = append(out, string(r[i:i+2]))
	}
	return out
}
