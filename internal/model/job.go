package model

import (
	"time"
)

// JobStatus is the terminal lifecycle status of a sourcing job.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Stage identifies the pipeline stage a job is currently in. The stage is
// persisted after every transition so a restarted process resumes at the
// right place.
type Stage string

const (
	StageFormatting Stage = "formatting"
	StageQueryGen   Stage = "query_gen"
	StageSearch     Stage = "search"
	StageEnrich     Stage = "enrich"
	StageScrape     Stage = "scrape"
	StageParse      Stage = "parse"
	StageSave       Stage = "save"
	StageScore      Stage = "score"
	StageCompleted  Stage = "completed"

	// StageNoCandidates marks the terminal business outcome where every
	// search variant was exhausted without enough contactable candidates.
	// Distinct from a generic failure so callers can suggest broadening
	// the requirements instead of reporting a system error.
	StageNoCandidates Stage = "no_candidates"
)

// QueryStrategy names one of the ordered search fallback strategies.
type QueryStrategy string

const (
	StrategyPrecise     QueryStrategy = "precise"
	StrategyBroad       QueryStrategy = "broad"
	StrategyAlternative QueryStrategy = "alternative"
	StrategyLoose       QueryStrategy = "loose"
)

// Requirements is the structured form of a raw job description.
type Requirements struct {
	Titles           []string `json:"titles"`
	RequiredSkills   []string `json:"required_skills"`
	NiceToHaveSkills []string `json:"nice_to_have_skills,omitempty"`
	Location         string   `json:"location,omitempty"`
	Industry         string   `json:"industry,omitempty"`
	MinYears         int      `json:"min_years,omitempty"`
	Seniority        string   `json:"seniority,omitempty"`
}

// QueryVariant is one search query in the precision → recall fallback cascade.
type QueryVariant struct {
	Strategy QueryStrategy `json:"strategy"`
	Keywords []string      `json:"keywords,omitempty"`
	Titles   []string      `json:"titles,omitempty"`
	Location string        `json:"location,omitempty"`
	Industry string        `json:"industry,omitempty"`
}

// Progress holds the per-stage item counters surfaced to callers.
type Progress struct {
	Found   int `json:"found"`
	Scraped int `json:"scraped"`
	Parsed  int `json:"parsed"`
	Saved   int `json:"saved"`
	Scored  int `json:"scored"`
}

// ErrorLogEntry is one appended entry in a job's error log.
type ErrorLogEntry struct {
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	At        time.Time `json:"at"`
}

// SourcingJob is the durable record of one sourcing run. It is the single
// source of truth for resumption: every stage reads its inputs from here and
// writes progress back before returning.
type SourcingJob struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	Description   string        `json:"description"`
	Requirements  *Requirements `json:"requirements,omitempty"`
	MaxCandidates int           `json:"max_candidates"`

	Variants         []QueryVariant `json:"variants,omitempty"`
	CurrentVariant   int            `json:"current_variant"`
	SearchIterations int            `json:"search_iterations"`
	ProfileURLs      []string       `json:"profile_urls,omitempty"`

	Progress Progress  `json:"progress"`
	Stage    Stage     `json:"stage"`
	Status   JobStatus `json:"status"`

	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorLog     []ErrorLogEntry `json:"error_log,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final status.
func (j *SourcingJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ScrapedProfile is one entry in the scrape-stage checkpoint: either a raw
// profile payload or a recorded failure for that URL.
type ScrapedProfile struct {
	URL       string         `json:"url"`
	Succeeded bool           `json:"succeeded"`
	Raw       map[string]any `json:"raw,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ScrapeCheckpoint is the cumulative scrape-stage result blob persisted on
// the job row after every batch. Failed entries are retried on resume;
// succeeded ones are not.
type ScrapeCheckpoint struct {
	Profiles []ScrapedProfile `json:"profiles"`
}

// SucceededURLs returns the set of URLs already scraped successfully.
func (c *ScrapeCheckpoint) SucceededURLs() map[string]bool {
	out := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		if p.Succeeded {
			out[p.URL] = true
		}
	}
	return out
}

// SucceededCount returns the number of successful scrapes in the checkpoint.
func (c *ScrapeCheckpoint) SucceededCount() int {
	n := 0
	for _, p := range c.Profiles {
		if p.Succeeded {
			n++
		}
	}
	return n
}

// ParsedProfile is the structured extraction result for one scraped profile.
type ParsedProfile struct {
	FullName        string   `json:"full_name"`
	ProfileURL      string   `json:"profile_url"`
	Headline        string   `json:"headline,omitempty"`
	Location        string   `json:"location,omitempty"`
	Company         string   `json:"company,omitempty"`
	Title           string   `json:"title,omitempty"`
	PhotoURL        string   `json:"photo_url,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	ExperienceYears float64  `json:"experience_years,omitempty"`
}

// Valid reports whether the two mandatory fields are present.
func (p *ParsedProfile) Valid() bool {
	return p.FullName != "" && p.ProfileURL != ""
}

// ParseCheckpoint is the cumulative parse-stage result blob, keyed by
// profile URL for resume checks.
type ParseCheckpoint struct {
	Profiles []ParsedProfile `json:"profiles"`
}

// ParsedURLs returns the set of profile URLs already parsed.
func (c *ParseCheckpoint) ParsedURLs() map[string]bool {
	out := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		out[p.ProfileURL] = true
	}
	return out
}
