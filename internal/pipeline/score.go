package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/resilience"
	"github.com/scoutline/sourcing-cli/pkg/anthropic"
)

const scoreSystemPromptHeader = `You score how well a candidate profile matches a job. Be lenient and generous: public profiles are incomplete, so give credit for transferable and adjacent experience rather than penalizing missing detail.

Score these components:
`

const scoreSystemPromptFooter = `
Respond with a single JSON object, no prose:
{
  "skills_score": 0, "experience_score": 0, "industry_score": 0,
  "seniority_score": 0, "bonus_score": 0, "total": 0,
  "matched_skills": [], "missing_skills": [], "bonus_skills": [],
  "relevant_years": 0.0,
  "seniority": "junior|mid|senior|lead|principal|executive",
  "industry_match": "same|adjacent|different",
  "reasoning": "one or two sentences"
}

relevant_years counts years in similar roles, not total career. total must equal the sum of the five component scores.`

// runScore repeatedly pulls unscored candidates and scores them with
// bounded concurrency. Resume safety comes from the is_scored flag: scored
// rows drop out of the query, so no separate checkpoint is needed. The job
// completes when the unscored query returns zero rows.
func (p *Pipeline) runScore(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	for {
		unscored, err := p.store.ListUnscored(ctx, job.ID, p.cfg.ScoreBatchSize)
		if err != nil {
			return "", err
		}
		if len(unscored) == 0 {
			return model.StageCompleted, nil
		}

		outcomes := RunSettled(ctx, unscored, p.cfg.ScoreConcurrency,
			func(ctx context.Context, c model.Candidate) (*model.ScoreResult, error) {
				return p.scoreCandidate(ctx, job, &c)
			})

		successes := 0
		for i, outcome := range outcomes {
			if outcome.Err != nil {
				// Stays unscored; the next pass retries it.
				zap.L().Warn("scoring failed for candidate",
					zap.String("job_id", job.ID),
					zap.String("candidate_id", unscored[i].ID),
					zap.Error(outcome.Err))
				continue
			}
			if err := p.store.UpdateCandidateScore(ctx, unscored[i].ID, outcome.Value); err != nil {
				zap.L().Warn("failed to persist score",
					zap.String("job_id", job.ID),
					zap.String("candidate_id", unscored[i].ID),
					zap.Error(err))
				continue
			}
			successes++
		}

		job.Progress.Scored += successes
		if err := p.store.UpdateProgress(ctx, job.ID, job.Progress); err != nil {
			return "", err
		}

		// A pass with zero successes means the batch would spin forever;
		// surface it as a retryable stage failure instead.
		if successes == 0 {
			err := resilience.NewTransientError(
				eris.Errorf("score: all %d candidates in pass failed", len(unscored)), 0)
			_ = p.store.AppendJobError(ctx, job.ID, errEntry(model.StageScore, err, true))
			return "", err
		}

		zap.L().Info("scoring pass done",
			zap.String("job_id", job.ID),
			zap.Int("scored", successes),
			zap.Int("pass_size", len(unscored)))
	}
}

func (p *Pipeline) scoreCandidate(ctx context.Context, job *model.SourcingJob, c *model.Candidate) (*model.ScoreResult, error) {
	reqJSON, err := json.Marshal(job.Requirements)
	if err != nil {
		return nil, eris.Wrap(err, "score: marshal requirements")
	}
	candidateJSON, err := json.Marshal(scoringView(c))
	if err != nil {
		return nil, eris.Wrap(err, "score: marshal candidate")
	}

	prompt := fmt.Sprintf("Job description:\n%s\n\nStructured requirements:\n%s\n\nCandidate profile:\n%s",
		job.Description, reqJSON, candidateJSON)

	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.models.ScoreModel,
		MaxTokens: 1024,
		System: []anthropic.SystemBlock{{
			Text:         scoreSystemPromptHeader + p.rubric.PromptSection() + scoreSystemPromptFooter,
			CacheControl: &anthropic.CacheControl{TTL: "5m"},
		}},
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(p.models.ScoreModel, "score")

	raw := extractJSON(resp.FirstText())
	if raw == "" {
		return nil, eris.New("score: no JSON in model output")
	}

	var result model.ScoreResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, eris.Wrap(err, "score: unmarshal result")
	}

	// Bound every component and recompute the total; model arithmetic is
	// not trusted.
	result.Clamp()
	return &result, nil
}

// scoringView trims the candidate to the fields the scoring model needs.
// Contact details never reach the model.
func scoringView(c *model.Candidate) map[string]any {
	view := map[string]any{
		"full_name": c.FullName,
		"headline":  c.Headline,
		"location":  c.Location,
		"company":   c.Company,
		"title":     c.Title,
	}
	if raw := c.RawProfile; raw != nil {
		if skills := skillsField(raw); len(skills) > 0 {
			view["skills"] = skills
		}
		view["experience_years"] = experienceYears(raw)
	}
	return view
}
