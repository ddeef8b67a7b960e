package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/scoutline/sourcing-cli/internal/model"
)

// runQueryGen derives the ordered search-variant cascade from the job's
// requirements and persists it. Pure derivation; re-running replaces the
// cascade with an identical one.
func (p *Pipeline) runQueryGen(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	if job.Requirements == nil {
		return "", errMissingRequirements
	}

	variants := BuildVariants(job.Requirements)
	if err := p.store.SetJobVariants(ctx, job.ID, variants); err != nil {
		return "", err
	}

	zap.L().Info("query variants generated",
		zap.String("job_id", job.ID),
		zap.Int("variants", len(variants)))

	return model.StageSearch, nil
}

// BuildVariants produces the fallback cascade in fixed order: precise,
// broad, alternative (only when nice-to-have skills exist), loose. Each
// variant trades precision for recall relative to the previous one, and
// the order determines degradation behavior under sparse results, so it
// must not be reordered.
func BuildVariants(req *model.Requirements) []model.QueryVariant {
	titles := dedupeFold(req.Titles)

	variants := []model.QueryVariant{
		{
			Strategy: model.StrategyPrecise,
			Keywords: req.RequiredSkills,
			Titles:   titles,
			Location: req.Location,
			Industry: req.Industry,
		},
		{
			Strategy: model.StrategyBroad,
			Keywords: req.RequiredSkills,
			Titles:   topN(titles, 3),
			Location: req.Location,
		},
	}

	if len(req.NiceToHaveSkills) > 0 {
		variants = append(variants, model.QueryVariant{
			Strategy: model.StrategyAlternative,
			Keywords: req.NiceToHaveSkills,
			Titles:   topN(titles, 3),
			Location: req.Location,
		})
	}

	// Titles are ordered most senior first, so the loose variant keeps
	// only the head of the list.
	variants = append(variants, model.QueryVariant{
		Strategy: model.StrategyLoose,
		Titles:   topN(titles, 1),
		Location: req.Location,
	})

	return variants
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// dedupeFold removes case-insensitive duplicates while preserving order.
func dedupeFold(items []string) []string {
	folder := cases.Fold()
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := folder.String(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
