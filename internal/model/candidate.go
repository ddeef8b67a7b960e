package model

import "time"

// Rubric sub-score maxima. The five components sum to 100.
const (
	MaxSkillsScore     = 25
	MaxExperienceScore = 25
	MaxIndustryScore   = 20
	MaxSeniorityScore  = 15
	MaxBonusScore      = 10
)

// SeniorityLevel is the seniority bucket assigned by the scoring model.
type SeniorityLevel string

const (
	SeniorityJunior    SeniorityLevel = "junior"
	SeniorityMid       SeniorityLevel = "mid"
	SenioritySenior    SeniorityLevel = "senior"
	SeniorityLead      SeniorityLevel = "lead"
	SeniorityPrincipal SeniorityLevel = "principal"
	SeniorityExecutive SeniorityLevel = "executive"
)

// ScoreResult is the full rubric output for one scored candidate.
type ScoreResult struct {
	SkillsScore     int `json:"skills_score"`
	ExperienceScore int `json:"experience_score"`
	IndustryScore   int `json:"industry_score"`
	SeniorityScore  int `json:"seniority_score"`
	BonusScore      int `json:"bonus_score"`
	Total           int `json:"total"`

	MatchedSkills []string       `json:"matched_skills,omitempty"`
	MissingSkills []string       `json:"missing_skills,omitempty"`
	BonusSkills   []string       `json:"bonus_skills,omitempty"`
	RelevantYears float64        `json:"relevant_years,omitempty"`
	Seniority     SeniorityLevel `json:"seniority,omitempty"`
	IndustryMatch string         `json:"industry_match,omitempty"`
	Reasoning     string         `json:"reasoning,omitempty"`
}

// Clamp bounds each sub-score to its rubric maximum (floor 0) and recomputes
// the total as the sum of the clamped components.
func (s *ScoreResult) Clamp() {
	s.SkillsScore = clampInt(s.SkillsScore, MaxSkillsScore)
	s.ExperienceScore = clampInt(s.ExperienceScore, MaxExperienceScore)
	s.IndustryScore = clampInt(s.IndustryScore, MaxIndustryScore)
	s.SeniorityScore = clampInt(s.SeniorityScore, MaxSeniorityScore)
	s.BonusScore = clampInt(s.BonusScore, MaxBonusScore)
	s.Total = s.SkillsScore + s.ExperienceScore + s.IndustryScore + s.SeniorityScore + s.BonusScore
}

func clampInt(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Candidate is one discovered, contactable profile tied to a job. A row
// exists iff contact enrichment found a usable contact method for the
// profile URL within that job. Identity is (JobID, ProfileURL).
type Candidate struct {
	ID         string `json:"id"`
	JobID      string `json:"job_id"`
	OwnerID    string `json:"owner_id"`
	ProfileURL string `json:"profile_url"`

	FullName string `json:"full_name,omitempty"`
	Headline string `json:"headline,omitempty"`
	Location string `json:"location,omitempty"`
	Company  string `json:"company,omitempty"`
	Title    string `json:"title,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`

	Email          string `json:"email,omitempty"`
	EmailType      string `json:"email_type,omitempty"`
	EmailStatus    string `json:"email_status,omitempty"`
	Phone          string `json:"phone,omitempty"`
	HasContactInfo bool   `json:"has_contact_info"`
	ContactSource  string `json:"contact_source,omitempty"`

	Enriched bool `json:"enriched"`
	Scraped  bool `json:"scraped"`
	Parsed   bool `json:"parsed"`

	RawProfile map[string]any `json:"raw_profile,omitempty"`

	Score    *ScoreResult `json:"score,omitempty"`
	IsScored bool         `json:"is_scored"`

	IsDuplicate    bool   `json:"is_duplicate"`
	FirstSeenJobID string `json:"first_seen_job_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
