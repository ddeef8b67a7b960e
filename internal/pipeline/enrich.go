package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/pkg/contactout"
)

// runEnrich looks up a contact method for every discovered profile URL not
// already represented by a candidate row. Contactability is a hard gate:
// profiles without a contact method are discarded, not persisted, so the
// scrape/parse/score budget is never spent on unreachable candidates.
//
// Calls are strictly sequential with a mandatory fixed delay because the
// provider enforces a hard per-minute quota.
func (p *Pipeline) runEnrich(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	maxCandidates := job.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = p.cfg.MaxCandidates
	}

	contactable, err := p.store.CountContactable(ctx, job.ID)
	if err != nil {
		return "", err
	}

	limiter := rate.NewLimiter(rate.Every(time.Duration(p.enrichDelayMs)*time.Millisecond), 1)

	for _, profileURL := range job.ProfileURLs {
		if contactable >= maxCandidates {
			break
		}

		// Resume check: rows from a previous run count toward the total
		// without re-calling the provider.
		exists, err := p.store.CandidateExists(ctx, job.ID, profileURL)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}

		contact, err := p.enrich.Enrich(ctx, profileURL)
		if err != nil {
			// Item-level failure: the profile is discarded and the batch
			// continues. Expected and non-fatal, so the job error field
			// stays clean.
			zap.L().Debug("enrichment failed for profile",
				zap.String("job_id", job.ID),
				zap.String("profile_url", profileURL),
				zap.Error(err))
			continue
		}
		if !contact.HasAny() {
			continue
		}

		candidate := newContactableCandidate(job, profileURL, contact)
		created, err := p.store.CreateCandidate(ctx, candidate)
		if err != nil {
			zap.L().Warn("failed to persist enriched candidate",
				zap.String("job_id", job.ID),
				zap.String("profile_url", profileURL),
				zap.Error(err))
			continue
		}
		if created {
			contactable++
		}
	}

	zap.L().Info("enrichment pass done",
		zap.String("job_id", job.ID),
		zap.Int("contactable", contactable),
		zap.Int("target", maxCandidates))

	// Branch: enough contactable candidates → scrape. Otherwise fall back
	// to the next query variant while attempts remain. With everything
	// exhausted, proceed with a partial set or resolve as no-candidates.
	if contactable >= maxCandidates {
		return model.StageScrape, nil
	}

	nextVariant := job.CurrentVariant + 1
	if job.SearchIterations < p.cfg.MaxSearchRetries && nextVariant < len(job.Variants) {
		if err := p.store.UpdateSearchState(ctx, job.ID, job.ProfileURLs, nextVariant, job.SearchIterations); err != nil {
			return "", err
		}
		return model.StageSearch, nil
	}

	if contactable > 0 {
		zap.L().Warn("proceeding with partial candidate set",
			zap.String("job_id", job.ID),
			zap.Int("contactable", contactable),
			zap.Int("target", maxCandidates))
		return model.StageScrape, nil
	}
	return model.StageNoCandidates, nil
}

func newContactableCandidate(job *model.SourcingJob, profileURL string, contact *contactout.Contact) *model.Candidate {
	c := &model.Candidate{
		JobID:          job.ID,
		OwnerID:        job.OwnerID,
		ProfileURL:     profileURL,
		HasContactInfo: true,
		ContactSource:  "contactout",
		Enriched:       true,
	}

	if email := selectEmail(contact.Emails); email != nil {
		c.Email = email.Address
		c.EmailType = email.Type
		c.EmailStatus = email.Status
	}
	if phone := selectPhone(contact.Phones); phone != nil {
		c.Phone = phone.Number
	}
	return c
}

// selectEmail applies the selection policy: verified personal, else
// verified work, else any work, else the first available.
func selectEmail(emails []contactout.Email) *contactout.Email {
	if len(emails) == 0 {
		return nil
	}
	for i := range emails {
		if emails[i].Type == "personal" && emails[i].Status == "verified" {
			return &emails[i]
		}
	}
	for i := range emails {
		if emails[i].Type == "work" && emails[i].Status == "verified" {
			return &emails[i]
		}
	}
	for i := range emails {
		if emails[i].Type == "work" {
			return &emails[i]
		}
	}
	return &emails[0]
}

// selectPhone takes at most one number, preferring a work-typed one.
func selectPhone(phones []contactout.Phone) *contactout.Phone {
	if len(phones) == 0 {
		return nil
	}
	for i := range phones {
		if phones[i].Type == "work" {
			return &phones[i]
		}
	}
	return &phones[0]
}
