package pipeline

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/pkg/apollo"
)

// runSearch executes the current query variant and merges the returned
// profile URLs into the job's accumulated set. A failed variant is logged
// and skipped; its partial results are discarded rather than half-merged.
func (p *Pipeline) runSearch(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	if len(job.Variants) == 0 {
		return "", eris.Errorf("search: job %s has no query variants", job.ID)
	}
	if job.CurrentVariant >= len(job.Variants) {
		// Nothing left to try; let the enrich branch resolve the outcome.
		return model.StageEnrich, nil
	}

	variant := job.Variants[job.CurrentVariant]
	zap.L().Info("executing search variant",
		zap.String("job_id", job.ID),
		zap.String("strategy", string(variant.Strategy)),
		zap.Int("iteration", job.SearchIterations+1))

	resp, err := p.search.SearchPeople(ctx, searchRequest(variant, p.searchPageSize))
	if err != nil {
		zap.L().Warn("search variant failed",
			zap.String("job_id", job.ID),
			zap.String("strategy", string(variant.Strategy)),
			zap.Error(err))
		_ = p.store.AppendJobError(ctx, job.ID, errEntry(model.StageSearch, err, true))

		// Discard partial results, advance past the broken variant.
		nextVariant := job.CurrentVariant + 1
		iterations := job.SearchIterations + 1
		if err := p.store.UpdateSearchState(ctx, job.ID, job.ProfileURLs, nextVariant, iterations); err != nil {
			return "", err
		}
		if iterations < p.cfg.MaxSearchRetries && nextVariant < len(job.Variants) {
			return model.StageSearch, nil
		}
		return model.StageEnrich, nil
	}

	merged := mergeProfileURLs(job.ProfileURLs, resp.People)
	iterations := job.SearchIterations + 1
	if err := p.store.UpdateSearchState(ctx, job.ID, merged, job.CurrentVariant, iterations); err != nil {
		return "", err
	}

	zap.L().Info("search variant done",
		zap.String("job_id", job.ID),
		zap.String("strategy", string(variant.Strategy)),
		zap.Int("hits", len(resp.People)),
		zap.Int("total_urls", len(merged)))

	return model.StageEnrich, nil
}

func searchRequest(v model.QueryVariant, pageSize int) *apollo.SearchRequest {
	req := &apollo.SearchRequest{
		PersonTitles: v.Titles,
		QKeywords:    strings.Join(v.Keywords, " "),
		Page:         1,
		PerPage:      pageSize,
	}
	if v.Location != "" {
		req.PersonLocations = []string{v.Location}
	}
	if v.Industry != "" {
		req.Industries = []string{v.Industry}
	}
	return req
}

// mergeProfileURLs unions new search hits into the accumulated URL set.
// Hits without a profile URL are discarded; duplicates across variants
// collapse on the normalized URL.
func mergeProfileURLs(existing []string, people []apollo.Person) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(people))
	for _, u := range existing {
		key := NormalizeProfileURL(u)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, u)
	}
	for _, person := range people {
		key := NormalizeProfileURL(person.LinkedinURL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, person.LinkedinURL)
	}
	return merged
}

// NormalizeProfileURL canonicalizes a profile URL for identity comparison:
// lowercased scheme/host, query and fragment stripped, no trailing slash.
func NormalizeProfileURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}
