package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/model"
)

// runSave writes parsed profile data onto the candidate rows created at
// enrichment, and stamps cross-job duplicate lineage. Per-item isolation:
// one malformed profile never aborts its batch. Re-running is safe because
// the update is idempotent and keyed by (job, profile URL).
func (p *Pipeline) runSave(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	parseCp, err := p.store.GetParseCheckpoint(ctx, job.ID)
	if err != nil {
		return "", err
	}

	scrapeCp, err := p.store.GetScrapeCheckpoint(ctx, job.ID)
	if err != nil {
		return "", err
	}
	rawByURL := make(map[string]map[string]any, len(scrapeCp.Profiles))
	for _, scraped := range scrapeCp.Profiles {
		if scraped.Succeeded {
			rawByURL[scraped.URL] = scraped.Raw
		}
	}

	saved := 0
	for _, batch := range Chunk(parseCp.Profiles, p.cfg.SaveBatchSize) {
		for i := range batch {
			if err := p.saveProfile(ctx, job, &batch[i], rawByURL[batch[i].ProfileURL]); err != nil {
				zap.L().Warn("failed to save parsed profile",
					zap.String("job_id", job.ID),
					zap.String("profile_url", batch[i].ProfileURL),
					zap.Error(err))
				continue
			}
			saved++
		}

		job.Progress.Saved = saved
		if err := p.store.UpdateProgress(ctx, job.ID, job.Progress); err != nil {
			return "", err
		}
	}

	zap.L().Info("save stage done",
		zap.String("job_id", job.ID),
		zap.Int("saved", saved),
		zap.Int("parsed", len(parseCp.Profiles)))

	return model.StageScore, nil
}

// saveProfile updates one candidate row with its parsed fields. Duplicate
// detection is cross-job for the same owner: a match marks the row as
// previously sourced with a back-reference to the first job. This is
// informational lineage, not an exclusion; duplicates are still saved and
// scored.
func (p *Pipeline) saveProfile(ctx context.Context, job *model.SourcingJob, parsed *model.ParsedProfile, raw map[string]any) error {
	firstSeen, err := p.store.FindFirstSeen(ctx, job.OwnerID, parsed.ProfileURL, job.ID)
	if err != nil {
		return err
	}

	return p.store.UpdateCandidateProfile(ctx, job.ID, parsed.ProfileURL,
		parsed, raw, firstSeen != "", firstSeen)
}
