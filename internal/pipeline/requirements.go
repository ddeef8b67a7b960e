package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/pkg/anthropic"
)

const formattingSystemPrompt = `You turn raw job descriptions into structured search requirements for a candidate sourcing tool.

Respond with a single JSON object, no prose, matching exactly:
{
  "titles": ["job title", ...],
  "required_skills": ["skill", ...],
  "nice_to_have_skills": ["skill", ...],
  "location": "city/region or empty string",
  "industry": "industry or empty string",
  "min_years": 0,
  "seniority": "junior|mid|senior|lead|principal|executive or empty string"
}

Rules:
- titles must contain at least one entry, ordered most senior first.
- required_skills are hard requirements stated in the description.
- nice_to_have_skills are explicitly optional or "bonus" skills; empty array if none.
- Keep values short; no explanations.`

// runFormatting derives structured requirements from the raw job
// description. The model output is the primary path; a deterministic
// extractor covers model failures so formatting alone never strands a job.
func (p *Pipeline) runFormatting(ctx context.Context, job *model.SourcingJob) (model.Stage, error) {
	if job.Requirements != nil && len(job.Requirements.Titles) > 0 {
		// Already formatted on a previous run.
		return model.StageQueryGen, nil
	}

	req, err := p.formatWithModel(ctx, job.Description)
	if err != nil {
		zap.L().Warn("model formatting failed, using manual extraction",
			zap.String("job_id", job.ID),
			zap.Error(err))
		req = manualRequirements(job.Description)
	}

	if req == nil || len(req.Titles) == 0 {
		return "", eris.New("formatting: could not derive any job title from description")
	}

	if err := p.store.SetJobRequirements(ctx, job.ID, req); err != nil {
		return "", err
	}

	zap.L().Info("requirements formatted",
		zap.String("job_id", job.ID),
		zap.Strings("titles", req.Titles),
		zap.Int("required_skills", len(req.RequiredSkills)))

	return model.StageQueryGen, nil
}

func (p *Pipeline) formatWithModel(ctx context.Context, description string) (*model.Requirements, error) {
	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.models.ParseModel,
		MaxTokens: 1024,
		System:    []anthropic.SystemBlock{{Text: formattingSystemPrompt}},
		Messages: []anthropic.Message{
			{Role: "user", Content: description},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(p.models.ParseModel, "formatting")

	raw := extractJSON(resp.FirstText())
	if raw == "" {
		return nil, eris.New("formatting: no JSON object in model output")
	}

	var req model.Requirements
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, eris.Wrap(err, "formatting: unmarshal requirements")
	}
	if len(req.Titles) == 0 {
		return nil, eris.New("formatting: model returned no titles")
	}
	return &req, nil
}

// manualRequirements extracts requirements from labeled lines in the
// description ("Title:", "Skills:", "Location:", ...). As a last resort
// the first non-empty line becomes the sole title.
func manualRequirements(description string) *model.Requirements {
	req := &model.Requirements{}
	var firstLine string

	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line == "" {
			continue
		}
		if firstLine == "" {
			firstLine = line
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title", "role", "position":
			req.Titles = appendSplit(req.Titles, value)
		case "skills", "required skills", "requirements", "must have":
			req.RequiredSkills = appendSplit(req.RequiredSkills, value)
		case "nice to have", "bonus", "preferred":
			req.NiceToHaveSkills = appendSplit(req.NiceToHaveSkills, value)
		case "location":
			req.Location = value
		case "industry":
			req.Industry = value
		case "seniority", "level":
			req.Seniority = strings.ToLower(value)
		}
	}

	if len(req.Titles) == 0 && firstLine != "" {
		req.Titles = []string{firstLine}
	}
	return req
}

func appendSplit(dst []string, value string) []string {
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			dst = append(dst, part)
		}
	}
	return dst
}
