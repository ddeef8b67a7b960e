package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/scoutline/sourcing-cli/internal/model"
)

// Rubric describes the scoring components and the guidance embedded in the
// scoring prompt. Component maxima are fixed; only the guidance text is
// meant to be tuned via the rubric file.
type Rubric struct {
	Components []RubricComponent `yaml:"components"`
}

// RubricComponent is one scored dimension.
type RubricComponent struct {
	Name     string `yaml:"name"`
	Field    string `yaml:"field"`
	Max      int    `yaml:"max"`
	Guidance string `yaml:"guidance"`
}

// DefaultRubric returns the built-in scoring rubric. The guidance is
// deliberately lenient: public profiles are incomplete, and transferable
// or adjacent skills deserve credit.
func DefaultRubric() *Rubric {
	return &Rubric{
		Components: []RubricComponent{
			{
				Name: "Skills match", Field: "skills_score", Max: model.MaxSkillsScore,
				Guidance: "Credit exact matches fully and transferable or adjacent skills generously. Missing evidence is not evidence of absence.",
			},
			{
				Name: "Experience fit", Field: "experience_score", Max: model.MaxExperienceScore,
				Guidance: "Weigh years in similar roles, not total career length. Close to the minimum still earns most points.",
			},
			{
				Name: "Industry relevance", Field: "industry_score", Max: model.MaxIndustryScore,
				Guidance: "Same industry scores full; adjacent industries score well; unrelated but transferable context still earns partial credit.",
			},
			{
				Name: "Title and seniority fit", Field: "seniority_score", Max: model.MaxSeniorityScore,
				Guidance: "Compare level, not exact wording. One level away is a minor deduction.",
			},
			{
				Name: "Nice-to-have bonus", Field: "bonus_score", Max: model.MaxBonusScore,
				Guidance: "Award for any nice-to-have skills present. Zero is fine; never penalize their absence elsewhere.",
			},
		},
	}
}

// LoadRubric reads a rubric from a YAML file, or returns the default when
// no path is configured. Component maxima must add up to 100 and match the
// fixed score bounds.
func LoadRubric(path string) (*Rubric, error) {
	if path == "" {
		return DefaultRubric(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rubric: read %s", path)
	}

	var rubric Rubric
	if err := yaml.Unmarshal(data, &rubric); err != nil {
		return nil, eris.Wrapf(err, "rubric: parse %s", path)
	}
	if err := rubric.Validate(); err != nil {
		return nil, eris.Wrapf(err, "rubric: validate %s", path)
	}
	return &rubric, nil
}

// Validate checks the component maxima against the fixed score bounds.
func (r *Rubric) Validate() error {
	expected := map[string]int{
		"skills_score":     model.MaxSkillsScore,
		"experience_score": model.MaxExperienceScore,
		"industry_score":   model.MaxIndustryScore,
		"seniority_score":  model.MaxSeniorityScore,
		"bonus_score":      model.MaxBonusScore,
	}

	if len(r.Components) != len(expected) {
		return eris.Errorf("expected %d components, got %d", len(expected), len(r.Components))
	}

	total := 0
	for _, c := range r.Components {
		max, ok := expected[c.Field]
		if !ok {
			return eris.Errorf("unknown component field %q", c.Field)
		}
		if c.Max != max {
			return eris.Errorf("component %q max must be %d, got %d", c.Field, max, c.Max)
		}
		total += c.Max
	}
	if total != 100 {
		return eris.Errorf("component maxima must sum to 100, got %d", total)
	}
	return nil
}

// PromptSection renders the rubric for the scoring system prompt.
func (r *Rubric) PromptSection() string {
	var b strings.Builder
	for _, c := range r.Components {
		fmt.Fprintf(&b, "- %s (%s, 0-%d): %s\n", c.Name, c.Field, c.Max, c.Guidance)
	}
	return b.String()
}
