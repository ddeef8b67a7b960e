package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/store"
)

// runScrape fetches full profile payloads for every contactable candidate.
// The cumulative result list, successes and failures together, is
// checkpointed after every batch so a resumed run retries only the URLs
// not already marked succeeded.
func (p *Pipeline) runScrape(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	candidates, err := p.store.ListCandidates(ctx, store.CandidateFilter{JobID: job.ID})
	if err != nil {
		return "", err
	}

	cp, err := p.store.GetScrapeCheckpoint(ctx, job.ID)
	if err != nil {
		return "", err
	}
	succeeded := cp.SucceededURLs()

	var pending []string
	for _, c := range candidates {
		if !succeeded[c.ProfileURL] {
			pending = append(pending, c.ProfileURL)
		}
	}

	zap.L().Info("scrape stage starting",
		zap.String("job_id", job.ID),
		zap.Int("total", len(candidates)),
		zap.Int("pending", len(pending)))

	for _, batch := range Chunk(pending, p.cfg.ScrapeBatchSize) {
		results := make([]model.ScrapedProfile, 0, len(batch))
		failures := 0

		for _, profileURL := range batch {
			resp, err := p.scrape.ScrapeProfile(ctx, profileURL)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				failures++
				results = append(results, model.ScrapedProfile{
					URL:   profileURL,
					Error: err.Error(),
				})
				continue
			}
			results = append(results, model.ScrapedProfile{
				URL:       profileURL,
				Succeeded: true,
				Raw:       resp.Person,
			})
		}

		mergeScrapeResults(cp, results)
		if err := p.store.SetScrapeCheckpoint(ctx, job.ID, cp); err != nil {
			return "", err
		}

		job.Progress.Scraped = cp.SucceededCount()
		if err := p.store.UpdateProgress(ctx, job.ID, job.Progress); err != nil {
			return "", err
		}

		// A fully failed batch looks like a provider outage. Record it on
		// the job and keep going; partial success beats all-or-nothing.
		if failures == len(batch) && len(batch) > 0 {
			batchErr := eris.Errorf("scrape: entire batch of %d failed", len(batch))
			zap.L().Warn("scrape batch failed entirely",
				zap.String("job_id", job.ID),
				zap.Int("batch_size", len(batch)))
			_ = p.store.AppendJobError(ctx, job.ID, errEntry(model.StageScrape, batchErr, true))
		}
	}

	zap.L().Info("scrape stage done",
		zap.String("job_id", job.ID),
		zap.Int("succeeded", cp.SucceededCount()),
		zap.Int("total", len(cp.Profiles)))

	return model.StageParse, nil
}

// mergeScrapeResults folds a batch into the cumulative checkpoint. A retried
// URL replaces its previous failure entry rather than appending a duplicate.
func mergeScrapeResults(cp *model.ScrapeCheckpoint, batch []model.ScrapedProfile) {
	index := make(map[string]int, len(cp.Profiles))
	for i, existing := range cp.Profiles {
		index[existing.URL] = i
	}
	for _, result := range batch {
		if i, ok := index[result.URL]; ok {
			cp.Profiles[i] = result
			continue
		}
		index[result.URL] = len(cp.Profiles)
		cp.Profiles = append(cp.Profiles, result)
	}
}
