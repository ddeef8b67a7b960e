package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/pkg/anthropic"
)

const parseSystemPrompt = `You extract structured candidate data from raw scraped profile JSON.

Respond with a single JSON object (never an array), matching exactly:
{
  "full_name": "required",
  "profile_url": "required",
  "headline": "",
  "location": "",
  "company": "",
  "title": "",
  "photo_url": "",
  "skills": ["up to 10 skills"],
  "experience_years": 0.0
}

full_name and profile_url are mandatory. experience_years is total professional experience. Omit fields you cannot determine. No prose, no markdown.`

// runParse turns successfully scraped payloads into structured profiles.
// Batches are small and fan out with bounded concurrency because model
// calls are slow; each batch's cumulative result list is checkpointed
// before the next batch starts.
func (p *Pipeline) runParse(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	scrapeCp, err := p.store.GetScrapeCheckpoint(ctx, job.ID)
	if err != nil {
		return "", err
	}
	parseCp, err := p.store.GetParseCheckpoint(ctx, job.ID)
	if err != nil {
		return "", err
	}
	done := parseCp.ParsedURLs()

	var pending []model.ScrapedProfile
	for _, scraped := range scrapeCp.Profiles {
		if scraped.Succeeded && !done[scraped.URL] {
			pending = append(pending, scraped)
		}
	}

	zap.L().Info("parse stage starting",
		zap.String("job_id", job.ID),
		zap.Int("pending", len(pending)),
		zap.Int("already_parsed", len(parseCp.Profiles)))

	for _, batch := range Chunk(pending, p.cfg.ParseBatchSize) {
		outcomes := RunSettled(ctx, batch, p.cfg.ParseConcurrency,
			func(ctx context.Context, scraped model.ScrapedProfile) (*model.ParsedProfile, error) {
				return p.extractProfile(ctx, scraped)
			})

		for i, outcome := range outcomes {
			if outcome.Err != nil {
				// Dropped item, not a stage failure.
				zap.L().Warn("profile dropped during parse",
					zap.String("job_id", job.ID),
					zap.String("profile_url", batch[i].URL),
					zap.Error(outcome.Err))
				continue
			}
			parseCp.Profiles = append(parseCp.Profiles, *outcome.Value)
		}

		if err := p.store.SetParseCheckpoint(ctx, job.ID, parseCp); err != nil {
			return "", err
		}
		job.Progress.Parsed = len(parseCp.Profiles)
		if err := p.store.UpdateProgress(ctx, job.ID, job.Progress); err != nil {
			return "", err
		}
	}

	zap.L().Info("parse stage done",
		zap.String("job_id", job.ID),
		zap.Int("parsed", len(parseCp.Profiles)))

	return model.StageSave, nil
}

// extractProfile runs the three-tier extraction: model call expecting a
// single schema-shaped object, recovery from an array-shaped response,
// then the deterministic manual extractor over the raw payload. A profile
// that fails all three tiers is dropped with the reason.
func (p *Pipeline) extractProfile(ctx context.Context, scraped model.ScrapedProfile) (*model.ParsedProfile, error) {
	parsed, modelErr := p.extractWithModel(ctx, scraped)
	if modelErr != nil {
		zap.L().Debug("model extraction failed, trying manual extractor",
			zap.String("profile_url", scraped.URL),
			zap.Error(modelErr))

		parsed = ProfileFromRaw(scraped.Raw, scraped.URL)
		if !parsed.Valid() {
			return nil, eris.Wrapf(modelErr, "parse: mandatory fields underivable for %s", scraped.URL)
		}
	}

	// Candidate rows and checkpoints key on the URL that came out of search.
	// Payloads and model output may carry a canonicalized variant, which must
	// not become the identity, or resume checks and row updates miss.
	if scraped.URL != "" {
		parsed.ProfileURL = scraped.URL
	}
	return parsed, nil
}

func (p *Pipeline) extractWithModel(ctx context.Context, scraped model.ScrapedProfile) (*model.ParsedProfile, error) {
	payload, err := json.Marshal(scraped.Raw)
	if err != nil {
		return nil, eris.Wrap(err, "parse: marshal raw profile")
	}

	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.models.ParseModel,
		MaxTokens: 1024,
		System:    []anthropic.SystemBlock{{Text: parseSystemPrompt}},
		Messages: []anthropic.Message{
			{Role: "user", Content: "Profile URL: " + scraped.URL + "\n\n" + string(payload)},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(p.models.ParseModel, "parse")

	return parseModelOutput(resp.FirstText(), scraped.URL)
}

// parseModelOutput decodes the model response. An array-shaped response is
// recovered by taking its first element when that element satisfies the
// mandatory fields.
func parseModelOutput(text, profileURL string) (*model.ParsedProfile, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, eris.New("parse: no JSON in model output")
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, eris.Wrap(err, "parse: unmarshal model output")
	}

	var obj map[string]any
	switch v := decoded.(type) {
	case map[string]any:
		obj = v
	case []any:
		if len(v) == 0 {
			return nil, eris.New("parse: model returned empty array")
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return nil, eris.New("parse: model array element is not an object")
		}
		obj = first
	default:
		return nil, eris.New("parse: model output is neither object nor array")
	}

	profile := ProfileFromRaw(obj, profileURL)
	if !profile.Valid() {
		return nil, eris.New("parse: model output missing mandatory fields")
	}
	return profile, nil
}
