package store

import (
	"context"

	"github.com/scoutline/sourcing-cli/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	OwnerID string          `json:"owner_id,omitempty"`
	Status  model.JobStatus `json:"status,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// CandidateFilter specifies criteria for listing candidates.
type CandidateFilter struct {
	JobID      string `json:"job_id"`
	OnlyScored bool   `json:"only_scored,omitempty"`
	MinScore   int    `json:"min_score,omitempty"`
	SortBy     string `json:"sort_by,omitempty"` // "score" or "created"
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the sourcing pipeline. Every
// write is a targeted field update keyed by job id; the pipeline relies on
// these writes as checkpoints for crash-safe resumption.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, ownerID, description string, maxCandidates int) (*model.SourcingJob, error)
	GetJob(ctx context.Context, jobID string) (*model.SourcingJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.SourcingJob, error)
	UpdateJobStage(ctx context.Context, jobID string, stage model.Stage) error
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	SetJobRequirements(ctx context.Context, jobID string, req *model.Requirements) error
	SetJobVariants(ctx context.Context, jobID string, variants []model.QueryVariant) error
	UpdateSearchState(ctx context.Context, jobID string, profileURLs []string, currentVariant, iterations int) error
	UpdateProgress(ctx context.Context, jobID string, p model.Progress) error
	AppendJobError(ctx context.Context, jobID string, entry model.ErrorLogEntry) error
	CompleteJob(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID string, stage model.Stage, message string) error

	// Checkpoints (JSON blobs on the job row)
	SetScrapeCheckpoint(ctx context.Context, jobID string, cp *model.ScrapeCheckpoint) error
	GetScrapeCheckpoint(ctx context.Context, jobID string) (*model.ScrapeCheckpoint, error)
	SetParseCheckpoint(ctx context.Context, jobID string, cp *model.ParseCheckpoint) error
	GetParseCheckpoint(ctx context.Context, jobID string) (*model.ParseCheckpoint, error)

	// Candidates
	CreateCandidate(ctx context.Context, c *model.Candidate) (bool, error)
	CandidateExists(ctx context.Context, jobID, profileURL string) (bool, error)
	CountContactable(ctx context.Context, jobID string) (int, error)
	CountCandidates(ctx context.Context, jobID string) (int, error)
	ListUnscored(ctx context.Context, jobID string, limit int) ([]model.Candidate, error)
	UpdateCandidateProfile(ctx context.Context, jobID, profileURL string, p *model.ParsedProfile, raw map[string]any, isDuplicate bool, firstSeenJobID string) error
	UpdateCandidateScore(ctx context.Context, candidateID string, score *model.ScoreResult) error
	FindFirstSeen(ctx context.Context, ownerID, profileURL, excludeJobID string) (string, error)
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Candidate, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
