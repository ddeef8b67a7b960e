// Package pipeline implements the candidate sourcing workflow: a durable
// state machine that turns a job description into ranked, contactable
// candidate profiles. Every stage reads its inputs from the job store and
// checkpoints progress back, so a restarted process resumes where the last
// one stopped without repeating external calls.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/config"
	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/store"
	"github.com/scoutline/sourcing-cli/pkg/anthropic"
	"github.com/scoutline/sourcing-cli/pkg/apollo"
	"github.com/scoutline/sourcing-cli/pkg/contactout"
	"github.com/scoutline/sourcing-cli/pkg/scrapin"
)

// Pipeline wires the job store and provider clients into the stage
// functions. One Pipeline instance serves many jobs; per-job state lives
// entirely in the store.
type Pipeline struct {
	store  store.Store
	search apollo.Client
	enrich contactout.Client
	scrape scrapin.Client
	ai     anthropic.Client

	cfg    config.PipelineConfig
	models config.AnthropicConfig
	rubric *Rubric

	// enrichDelay is the mandatory pause between enrichment calls.
	enrichDelayMs  int
	searchPageSize int
}

// New creates a Pipeline from configured dependencies.
func New(
	st store.Store,
	search apollo.Client,
	enrich contactout.Client,
	scrape scrapin.Client,
	ai anthropic.Client,
	cfg *config.Config,
) (*Pipeline, error) {
	rubric, err := LoadRubric(cfg.Pipeline.RubricPath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load rubric")
	}

	return &Pipeline{
		store:          st,
		search:         search,
		enrich:         enrich,
		scrape:         scrape,
		ai:             ai,
		cfg:            cfg.Pipeline,
		models:         cfg.Anthropic,
		rubric:         rubric,
		enrichDelayMs:  cfg.ContactOut.DelayMs,
		searchPageSize: cfg.Apollo.PageSize,
	}, nil
}

// Run executes the job from its persisted stage until it reaches a terminal
// status. Safe to call again for a job that previously crashed or failed
// with a retryable error: completed work is detected via checkpoints and
// skipped.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load job %s", jobID)
	}
	if job.Status == model.JobStatusCompleted {
		zap.L().Info("job already completed", zap.String("job_id", jobID))
		return nil
	}
	if job.Stage == model.StageNoCandidates {
		zap.L().Info("job already resolved as no-candidates", zap.String("job_id", jobID))
		return nil
	}
	if job.Status == model.JobStatusFailed {
		// A failed job is re-runnable; reset status and resume at its stage.
		zap.L().Info("resuming failed job",
			zap.String("job_id", jobID),
			zap.String("stage", string(job.Stage)))
	}

	if err := p.store.UpdateJobStatus(ctx, jobID, model.JobStatusRunning); err != nil {
		return err
	}

	for {
		job, err = p.store.GetJob(ctx, jobID)
		if err != nil {
			return eris.Wrapf(err, "pipeline: reload job %s", jobID)
		}

		zap.L().Info("entering stage",
			zap.String("job_id", jobID),
			zap.String("stage", string(job.Stage)))

		var next model.Stage
		var stageErr error

		switch job.Stage {
		case model.StageFormatting:
			next, stageErr = p.runFormatting(ctx, job)
		case model.StageQueryGen:
			next, stageErr = p.runQueryGen(ctx, job)
		case model.StageSearch:
			next, stageErr = p.runSearch(ctx, job)
		case model.StageEnrich:
			next, stageErr = p.runEnrich(ctx, job)
		case model.StageScrape:
			next, stageErr = p.runScrape(ctx, job)
		case model.StageParse:
			next, stageErr = p.runParse(ctx, job)
		case model.StageSave:
			next, stageErr = p.runSave(ctx, job)
		case model.StageScore:
			next, stageErr = p.runScore(ctx, job)
		case model.StageCompleted:
			return p.store.CompleteJob(ctx, jobID)
		case model.StageNoCandidates:
			// Already resolved; nothing to resume.
			return nil
		default:
			return eris.Errorf("pipeline: unknown stage %q for job %s", job.Stage, jobID)
		}

		if stageErr != nil {
			return p.failJob(ctx, job, stageErr)
		}

		if next == model.StageNoCandidates {
			return p.resolveNoCandidates(ctx, job)
		}
		if next == model.StageCompleted {
			return p.store.CompleteJob(ctx, jobID)
		}

		if err := p.store.UpdateJobStage(ctx, jobID, next); err != nil {
			return err
		}
	}
}

// failJob records a stage failure and marks the job failed. The error log
// entry keeps the retryable flag so callers know a re-run may succeed.
func (p *Pipeline) failJob(ctx context.Context, job *model.SourcingJob, stageErr error) error {
	retryable := isRetryable(stageErr)
	zap.L().Error("stage failed",
		zap.String("job_id", job.ID),
		zap.String("stage", string(job.Stage)),
		zap.Bool("retryable", retryable),
		zap.Error(stageErr))

	_ = p.store.AppendJobError(ctx, job.ID, errEntry(job.Stage, stageErr, retryable))
	if err := p.store.FailJob(ctx, job.ID, job.Stage, stageErr.Error()); err != nil {
		return eris.Wrapf(err, "pipeline: mark job %s failed", job.ID)
	}
	return stageErr
}

// resolveNoCandidates marks the terminal business outcome where every
// search variant was exhausted without any contactable candidate. This is
// a distinct marker, not a system failure, so callers can suggest
// broadening the requirements.
func (p *Pipeline) resolveNoCandidates(ctx context.Context, job *model.SourcingJob) error {
	zap.L().Warn("no contactable candidates after exhausting search variants",
		zap.String("job_id", job.ID),
		zap.Int("iterations", job.SearchIterations))

	if err := p.store.FailJob(ctx, job.ID, model.StageNoCandidates,
		"no qualifying candidates found; try broader requirements"); err != nil {
		return eris.Wrapf(err, "pipeline: resolve no candidates for %s", job.ID)
	}
	return nil
}
