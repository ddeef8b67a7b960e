package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/store"
	"github.com/scoutline/sourcing-cli/pkg/anthropic"
	"github.com/scoutline/sourcing-cli/pkg/apollo"
	"github.com/scoutline/sourcing-cli/pkg/scrapin"
)

const requirementsJSON = `{
	"titles": ["Staff Engineer", "Senior Engineer"],
	"required_skills": ["Go"],
	"nice_to_have_skills": [],
	"location": "Berlin",
	"industry": "fintech",
	"min_years": 5,
	"seniority": "senior"
}`

func systemContains(substr string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) > 0 && strings.Contains(req.System[0].Text, substr)
	})
}

// TestRun_FullPipeline drives a job from formatting to completion,
// including the fallback to the broad variant when the precise search
// does not yield enough contactable candidates.
func TestRun_FullPipeline(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "owner", "We need a Staff Engineer in Berlin", 2)
	require.NoError(t, err)

	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, systemContains("structured search requirements")).
		Return(textResponse(requirementsJSON), nil)
	ai.On("CreateMessage", mock.Anything, systemContains("extract structured candidate data")).
		Return(textResponse(`{"full_name":"Jane Doe","profile_url":"https://l/in/a","title":"Staff Engineer"}`), nil).Once()
	ai.On("CreateMessage", mock.Anything, systemContains("extract structured candidate data")).
		Return(textResponse(`{"full_name":"John Roe","profile_url":"https://l/in/b","title":"Senior Engineer"}`), nil).Once()
	ai.On("CreateMessage", mock.Anything, systemContains("score how well a candidate")).
		Return(textResponse(validScoreJSON), nil)

	search := &mockSearchClient{}
	// Precise variant (industry filter present) finds one profile.
	search.On("SearchPeople", mock.Anything, mock.MatchedBy(func(req *apollo.SearchRequest) bool {
		return len(req.Industries) > 0
	})).Return(&apollo.SearchResponse{People: []apollo.Person{
		{LinkedinURL: "https://l/in/a"},
	}}, nil).Once()
	// Broad variant (no industry) finds a second one plus a duplicate.
	search.On("SearchPeople", mock.Anything, mock.MatchedBy(func(req *apollo.SearchRequest) bool {
		return len(req.Industries) == 0
	})).Return(&apollo.SearchResponse{People: []apollo.Person{
		{LinkedinURL: "https://l/in/a"},
		{LinkedinURL: "https://l/in/b"},
	}}, nil).Once()

	enrich := &mockEnrichClient{}
	enrich.On("Enrich", mock.Anything, "https://l/in/a").Return(contactWithEmail("jane@x.com"), nil).Once()
	enrich.On("Enrich", mock.Anything, "https://l/in/b").Return(contactWithEmail("john@x.com"), nil).Once()

	scrape := &mockScrapeClient{}
	scrape.On("ScrapeProfile", mock.Anything, "https://l/in/a").
		Return(&scrapin.ProfileResponse{Success: true, Person: map[string]any{"name": "Jane Doe"}}, nil).Once()
	scrape.On("ScrapeProfile", mock.Anything, "https://l/in/b").
		Return(&scrapin.ProfileResponse{Success: true, Person: map[string]any{"name": "John Roe"}}, nil).Once()

	p := newTestPipeline(st, search, enrich, scrape, ai)
	p.cfg.MaxCandidates = 2

	require.NoError(t, p.Run(ctx, job.ID))

	final, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Equal(t, model.StageCompleted, final.Stage)
	assert.NotNil(t, final.CompletedAt)

	// Both variants ran, in cascade order.
	search.AssertNumberOfCalls(t, "SearchPeople", 2)
	assert.Equal(t, 2, final.SearchIterations)

	// Monotonic progress at the terminal checkpoint.
	pr := final.Progress
	assert.LessOrEqual(t, pr.Scored, pr.Saved)
	assert.LessOrEqual(t, pr.Saved, pr.Parsed)
	assert.LessOrEqual(t, pr.Parsed, pr.Scraped)
	assert.LessOrEqual(t, pr.Scraped, pr.Found)
	assert.Equal(t, 2, pr.Scored)

	candidates, err := st.ListCandidates(ctx, store.CandidateFilter{JobID: job.ID, SortBy: "score"})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.True(t, c.HasContactInfo)
		assert.True(t, c.IsScored)
		require.NotNil(t, c.Score)
		assert.Equal(t, 68, c.Score.Total)
	}
}

func TestRun_NoCandidatesOutcome(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "owner", "Unicorn wrangler wanted", 2)
	require.NoError(t, err)

	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, systemContains("structured search requirements")).
		Return(textResponse(`{"titles":["Unicorn Wrangler"],"required_skills":["lassoing"]}`), nil)

	search := &mockSearchClient{}
	search.On("SearchPeople", mock.Anything, mock.Anything).
		Return(&apollo.SearchResponse{}, nil)

	enrich := &mockEnrichClient{}
	enrich.On("Enrich", mock.Anything, mock.Anything).Return(nil, nil)

	p := newTestPipeline(st, search, enrich, &mockScrapeClient{}, ai)
	p.cfg.MaxCandidates = 2

	require.NoError(t, p.Run(ctx, job.ID))

	final, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)

	// Distinguishable terminal marker, not a generic failure stage.
	assert.Equal(t, model.JobStatusFailed, final.Status)
	assert.Equal(t, model.StageNoCandidates, final.Stage)
	assert.Contains(t, final.ErrorMessage, "broader requirements")

	count, err := st.CountCandidates(ctx, job.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRun_AlreadyCompletedIsNoOp(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "owner", "desc", 2)
	require.NoError(t, err)
	require.NoError(t, st.CompleteJob(ctx, job.ID))

	// No provider expectations: any call would fail the test.
	p := newTestPipeline(st, &mockSearchClient{}, &mockEnrichClient{}, &mockScrapeClient{}, &mockAIClient{})

	require.NoError(t, p.Run(ctx, job.ID))
}

func TestRun_ResumesFromPersistedStage(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "owner", "desc", 1)
	require.NoError(t, err)
	require.NoError(t, st.SetJobRequirements(ctx, job.ID, fullRequirements()))

	// Crashed after save: one saved, unscored candidate remains.
	_, err = st.CreateCandidate(ctx, &model.Candidate{
		JobID:          job.ID,
		OwnerID:        "owner",
		ProfileURL:     "https://l/in/a",
		FullName:       "Jane Doe",
		HasContactInfo: true,
		Enriched:       true,
		Scraped:        true,
		Parsed:         true,
	})
	require.NoError(t, err)
	require.NoError(t, st.UpdateJobStage(ctx, job.ID, model.StageScore))

	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, systemContains("score how well a candidate")).
		Return(textResponse(validScoreJSON), nil).Once()

	p := newTestPipeline(st, &mockSearchClient{}, &mockEnrichClient{}, &mockScrapeClient{}, ai)

	require.NoError(t, p.Run(ctx, job.ID))

	final, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	ai.AssertNumberOfCalls(t, "CreateMessage", 1)
}
