package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/sourcing-cli/internal/model"
	"github.com/scoutline/sourcing-cli/internal/store"
)

func scoreTestJob(t *testing.T, st *memStore, urls []string) *model.SourcingJob {
	t.Helper()
	ctx := context.Background()
	job, err := st.CreateJob(ctx, "owner", "desc", len(urls))
	require.NoError(t, err)
	require.NoError(t, st.SetJobRequirements(ctx, job.ID, fullRequirements()))
	for _, u := range urls {
		_, err := st.CreateCandidate(ctx, &model.Candidate{
			JobID:          job.ID,
			OwnerID:        "owner",
			ProfileURL:     u,
			FullName:       "Someone",
			HasContactInfo: true,
		})
		require.NoError(t, err)
	}
	job, err = st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	return job
}

const validScoreJSON = `{
	"skills_score": 20, "experience_score": 18, "industry_score": 15,
	"seniority_score": 10, "bonus_score": 5, "total": 68,
	"matched_skills": ["Go"], "missing_skills": ["PostgreSQL"],
	"relevant_years": 4.5, "seniority": "senior", "industry_match": "adjacent",
	"reasoning": "solid overlap"
}`

func TestRunScore_CompletesWhenAllScored(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()
	job := scoreTestJob(t, st, []string{"https://l/in/a", "https://l/in/b", "https://l/in/c"})

	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(validScoreJSON), nil)

	p := newTestPipeline(st, &mockSearchClient{}, &mockEnrichClient{}, &mockScrapeClient{}, ai)

	next, err := p.runScore(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, model.StageCompleted, next)

	candidates, err := st.ListCandidates(ctx, store.CandidateFilter{JobID: job.ID, OnlyScored: true})
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	for _, c := range candidates {
		require.NotNil(t, c.Score)
		assert.Equal(t, 68, c.Score.Total)
		assert.Equal(t, model.SenioritySenior, c.Score.Seniority)
	}

	jobAfter, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, jobAfter.Progress.Scored)
}

func TestRunScore_ClampsOutOfRangeScores(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()
	job := scoreTestJob(t, st, []string{"https://l/in/a"})

	// Components above their maxima and a total that does not add up.
	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"skills_score": 40, "experience_score": -3, "industry_score": 25,
		"seniority_score": 20, "bonus_score": 12, "total": 999
	}`), nil)

	p := newTestPipeline(st, &mockSearchClient{}, &mockEnrichClient{}, &mockScrapeClient{}, ai)

	_, err := p.runScore(ctx, job)
	require.NoError(t, err)

	candidates, err := st.ListCandidates(ctx, store.CandidateFilter{JobID: job.ID, OnlyScored: true})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	score := candidates[0].Score
	assert.Equal(t, model.MaxSkillsScore, score.SkillsScore)
	assert.Equal(t, 0, score.ExperienceScore)
	assert.Equal(t, model.MaxIndustryScore, score.IndustryScore)
	assert.Equal(t, model.MaxSeniorityScore, score.SeniorityScore)
	assert.Equal(t, model.MaxBonusScore, score.BonusScore)
	assert.Equal(t, 25+0+20+15+10, score.Total)
}

func TestRunScore_FailedItemStaysUnscored(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()
	job := scoreTestJob(t, st, []string{"https://l/in/a", "https://l/in/b"})

	ai := &mockAIClient{}
	// Pass 1: a succeeds, b fails. Pass 2: b succeeds.
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(validScoreJSON), nil).Once()
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("model timeout")).Once()
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(validScoreJSON), nil).Once()

	p := newTestPipeline(st, &mockSearchClient{}, &mockEnrichClient{}, &mockScrapeClient{}, ai)
	p.cfg.ScoreConcurrency = 1

	next, err := p.runScore(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, model.StageCompleted, next)

	candidates, err := st.ListCandidates(ctx, store.CandidateFilter{JobID: job.ID, OnlyScored: true})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestRunScore_AllFailedPassSurfacesRetryableError(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()
	job := scoreTestJob(t, st, []string{"https://l/in/a"})

	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("model down"))

	p := newTestPipeline(st, &mockSearchClient{}, &mockEnrichClient{}, &mockScrapeClient{}, ai)

	_, err := p.runScore(ctx, job)
	require.Error(t, err)
	assert.True(t, isRetryable(err))
}

func TestScoreResult_ClampRecomputesTotal(t *testing.T) {
	s := &model.ScoreResult{
		SkillsScore:     10,
		ExperienceScore: 10,
		IndustryScore:   10,
		SeniorityScore:  10,
		BonusScore:      5,
		Total:           1, // stale
	}
	s.Clamp()
	assert.Equal(t, 45, s.Total)
}
