package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"

	"github.com/scoutline/sourcing-cli/internal/config"
	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/store"
	"github.com/scoutline/sourcing-cli/pkg/anthropic"
	"github.com/scoutline/sourcing-cli/pkg/apollo"
	"github.com/scoutline/sourcing-cli/pkg/contactout"
	"github.com/scoutline/sourcing-cli/pkg/scrapin"
)

// --- Search mock ---

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) SearchPeople(ctx context.Context, req *apollo.SearchRequest) (*apollo.SearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apollo.SearchResponse), args.Error(1)
}

// --- Enrichment mock ---

type mockEnrichClient struct {
	mock.Mock
}

func (m *mockEnrichClient) Enrich(ctx context.Context, profileURL string) (*contactout.Contact, error) {
	args := m.Called(ctx, profileURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contactout.Contact), args.Error(1)
}

// --- Scrape mock ---

type mockScrapeClient struct {
	mock.Mock
}

func (m *mockScrapeClient) ScrapeProfile(ctx context.Context, profileURL string) (*scrapin.ProfileResponse, error) {
	args := m.Called(ctx, profileURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scrapin.ProfileResponse), args.Error(1)
}

// --- Anthropic mock ---

type mockAIClient struct {
	mock.Mock
}

func (m *mockAIClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

// --- In-memory store ---

// memStore is a full in-memory Store used by stage and orchestration
// tests. Behavior mirrors the SQL implementations, including the
// (job, profile URL) uniqueness of candidates.
type memStore struct {
	mu         sync.Mutex
	jobs       map[string]*model.SourcingJob
	candidates map[string]*model.Candidate // key: jobID + "|" + profileURL
	scrapeCps  map[string]*model.ScrapeCheckpoint
	parseCps   map[string]*model.ParseCheckpoint
}

func newMemStore() *memStore {
	return &memStore{
		jobs:       make(map[string]*model.SourcingJob),
		candidates: make(map[string]*model.Candidate),
		scrapeCps:  make(map[string]*model.ScrapeCheckpoint),
		parseCps:   make(map[string]*model.ParseCheckpoint),
	}
}

var _ store.Store = (*memStore)(nil)

func candidateKey(jobID, profileURL string) string {
	return jobID + "|" + profileURL
}

func (s *memStore) CreateJob(ctx context.Context, ownerID, description string, maxCandidates int) (*model.SourcingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := &model.SourcingJob{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Description:   description,
		MaxCandidates: maxCandidates,
		Stage:         model.StageFormatting,
		Status:        model.JobStatusCreated,
		CreatedAt:     time.Now().UTC(),
	}
	s.jobs[job.ID] = job
	return cloneJob(job), nil
}

func (s *memStore) GetJob(ctx context.Context, jobID string) (*model.SourcingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, eris.Errorf("job not found: %s", jobID)
	}
	return cloneJob(job), nil
}

func (s *memStore) ListJobs(ctx context.Context, filter store.JobFilter) ([]model.SourcingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SourcingJob
	for _, job := range s.jobs {
		if filter.OwnerID != "" && job.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, *cloneJob(job))
	}
	return out, nil
}

func (s *memStore) mutateJob(jobID string, fn func(*model.SourcingJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return eris.Errorf("job not found: %s", jobID)
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) UpdateJobStage(ctx context.Context, jobID string, stage model.Stage) error {
	return s.mutateJob(jobID, func(j *model.SourcingJob) { j.Stage = stage })
}

func (s *memStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	return s.mutateJob(jobID, func(j *model.SourcingJob) { j.Status = status })
}

func (s *memStore) SetJobRequirements(ctx context.Context, jobID string, req *model.Requirements) error {
	return s.mutateJob(jobID, func(j *model.SourcingJob) { j.Requirements = req })
}

func (s *memStore) SetJobVariants(ctx context.Context, jobID string, variants []model.QueryVariant) error {
	return s.mutateJob(jobID, func(j *model.SourcingJob) {
		j.Variants = variants
		j.CurrentVariant = 0
	})
}

func (s *memStore) UpdateSearchState(ctx context.Context, jobID string, profileURLs []string, currentVariant, iterations int) error {
	return s.mutateJob(jobID, func(j *model.SourcingJob) {
		j.ProfileURLs = profileURLs
		j.Progress.Found = len(profileURLs)
		j.CurrentVariant = currentVariant
		j.SearchIterations = iterations
	})
}

func (s *memStore) UpdateProgress(ctx context.Context, jobID string, p model.Progress) error {
	return s.mutateJob(jobID, func(j *model.SourcingJob) { j.Progress = p })
}

func (s *memStore) AppendJobError(ctx context.Context, jobID string, entry model.ErrorLogEntry) error {
	return s.mutateJob(jobID, func(j *model.SourcingJob) {
		j.ErrorLog = append(j.ErrorLog, entry)
		j.ErrorMessage = entry.Message
	})
}

func (s *memStore) CompleteJob(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	return s.mutateJob(jobID, func(j *model.SourcingJob) {
		j.Status = model.JobStatusCompleted
		j.Stage = model.StageCompleted
		j.CompletedAt = &now
	})
}

func (s *memStore) FailJob(ctx context.Context, jobID string, stage model.Stage, message string) error {
	now := time.Now().UTC()
	return s.mutateJob(jobID, func(j *model.SourcingJob) {
		j.Status = model.JobStatusFailed
		j.Stage = stage
		j.ErrorMessage = message
		j.CompletedAt = &now
	})
}

func (s *memStore) SetScrapeCheckpoint(ctx context.Context, jobID string, cp *model.ScrapeCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cp
	copied.Profiles = append([]model.ScrapedProfile(nil), cp.Profiles...)
	s.scrapeCps[jobID] = &copied
	return nil
}

func (s *memStore) GetScrapeCheckpoint(ctx context.Context, jobID string) (*model.ScrapeCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.scrapeCps[jobID]
	if !ok {
		return &model.ScrapeCheckpoint{}, nil
	}
	copied := *cp
	copied.Profiles = append([]model.ScrapedProfile(nil), cp.Profiles...)
	return &copied, nil
}

func (s *memStore) SetParseCheckpoint(ctx context.Context, jobID string, cp *model.ParseCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cp
	copied.Profiles = append([]model.ParsedProfile(nil), cp.Profiles...)
	s.parseCps[jobID] = &copied
	return nil
}

func (s *memStore) GetParseCheckpoint(ctx context.Context, jobID string) (*model.ParseCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.parseCps[jobID]
	if !ok {
		return &model.ParseCheckpoint{}, nil
	}
	copied := *cp
	copied.Profiles = append([]model.ParsedProfile(nil), cp.Profiles...)
	return &copied, nil
}

func (s *memStore) CreateCandidate(ctx context.Context, c *model.Candidate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := candidateKey(c.JobID, c.ProfileURL)
	if _, exists := s.candidates[key]; exists {
		return false, nil
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()
	copied := *c
	s.candidates[key] = &copied
	return true, nil
}

func (s *memStore) CandidateExists(ctx context.Context, jobID, profileURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.candidates[candidateKey(jobID, profileURL)]
	return ok, nil
}

func (s *memStore) CountContactable(ctx context.Context, jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.candidates {
		if c.JobID == jobID && c.HasContactInfo {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountCandidates(ctx context.Context, jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.candidates {
		if c.JobID == jobID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListUnscored(ctx context.Context, jobID string, limit int) ([]model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Candidate
	for _, c := range s.candidates {
		if c.JobID == jobID && !c.IsScored {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfileURL < out[j].ProfileURL })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateCandidateProfile(ctx context.Context, jobID, profileURL string, p *model.ParsedProfile, raw map[string]any, isDuplicate bool, firstSeenJobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateKey(jobID, profileURL)]
	if !ok {
		return eris.Errorf("candidate not found: %s", profileURL)
	}
	c.FullName = p.FullName
	c.Headline = p.Headline
	c.Location = p.Location
	c.Company = p.Company
	c.Title = p.Title
	c.PhotoURL = p.PhotoURL
	if raw != nil {
		c.RawProfile = raw
	}
	c.Scraped = true
	c.Parsed = true
	c.IsDuplicate = isDuplicate
	c.FirstSeenJobID = firstSeenJobID
	return nil
}

func (s *memStore) UpdateCandidateScore(ctx context.Context, candidateID string, score *model.ScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.candidates {
		if c.ID == candidateID {
			c.Score = score
			c.IsScored = true
			return nil
		}
	}
	return eris.Errorf("candidate not found: %s", candidateID)
}

func (s *memStore) FindFirstSeen(ctx context.Context, ownerID, profileURL, excludeJobID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstJob string
	var firstAt time.Time
	for _, c := range s.candidates {
		if c.OwnerID != ownerID || c.ProfileURL != profileURL || c.JobID == excludeJobID {
			continue
		}
		if firstJob == "" || c.CreatedAt.Before(firstAt) {
			firstJob = c.JobID
			firstAt = c.CreatedAt
		}
	}
	return firstJob, nil
}

func (s *memStore) ListCandidates(ctx context.Context, filter store.CandidateFilter) ([]model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Candidate
	for _, c := range s.candidates {
		if c.JobID != filter.JobID {
			continue
		}
		if filter.OnlyScored && !c.IsScored {
			continue
		}
		if filter.MinScore > 0 && (c.Score == nil || c.Score.Total < filter.MinScore) {
			continue
		}
		out = append(out, *c)
	}
	if filter.SortBy == "score" {
		sort.Slice(out, func(i, j int) bool {
			si, sj := -1, -1
			if out[i].Score != nil {
				si = out[i].Score.Total
			}
			if out[j].Score != nil {
				sj = out[j].Score.Total
			}
			return si > sj
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ProfileURL < out[j].ProfileURL })
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memStore) Migrate(ctx context.Context) error { return nil }
func (s *memStore) Close() error                      { return nil }

func cloneJob(j *model.SourcingJob) *model.SourcingJob {
	copied := *j
	copied.Variants = append([]model.QueryVariant(nil), j.Variants...)
	copied.ProfileURLs = append([]string(nil), j.ProfileURLs...)
	copied.ErrorLog = append([]model.ErrorLogEntry(nil), j.ErrorLog...)
	return &copied
}

// newTestPipeline builds a Pipeline with zero enrichment delay and small
// batch sizes so tests run fast.
func newTestPipeline(st store.Store, search apollo.Client, enrich contactout.Client, scrape scrapin.Client, ai anthropic.Client) *Pipeline {
	return &Pipeline{
		store:  st,
		search: search,
		enrich: enrich,
		scrape: scrape,
		ai:     ai,
		cfg: config.PipelineConfig{
			MaxCandidates:    3,
			MaxSearchRetries: 3,
			ScrapeBatchSize:  2,
			ParseBatchSize:   2,
			SaveBatchSize:    2,
			ScoreBatchSize:   2,
			ScoreConcurrency: 2,
			ParseConcurrency: 2,
		},
		models: config.AnthropicConfig{
			ParseModel: "parse-model",
			ScoreModel: "score-model",
		},
		rubric:         DefaultRubric(),
		enrichDelayMs:  0,
		searchPageSize: 100,
	}
}
