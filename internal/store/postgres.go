package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scoutline/sourcing-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it,
// which keeps PostgresStore testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id          TEXT NOT NULL,
	description       TEXT NOT NULL,
	requirements      JSONB,
	max_candidates    INTEGER NOT NULL DEFAULT 50,
	variants          JSONB,
	current_variant   INTEGER NOT NULL DEFAULT 0,
	search_iterations INTEGER NOT NULL DEFAULT 0,
	profile_urls      JSONB,
	profiles_found    INTEGER NOT NULL DEFAULT 0,
	profiles_scraped  INTEGER NOT NULL DEFAULT 0,
	profiles_parsed   INTEGER NOT NULL DEFAULT 0,
	profiles_saved    INTEGER NOT NULL DEFAULT 0,
	profiles_scored   INTEGER NOT NULL DEFAULT 0,
	stage             TEXT NOT NULL DEFAULT 'formatting',
	status            TEXT NOT NULL DEFAULT 'created',
	error_message     TEXT,
	error_log         JSONB,
	scrape_checkpoint JSONB,
	parse_checkpoint  JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS candidates (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job_id            TEXT NOT NULL REFERENCES jobs(id),
	owner_id          TEXT NOT NULL,
	profile_url       TEXT NOT NULL,
	full_name         TEXT,
	headline          TEXT,
	location          TEXT,
	company           TEXT,
	title             TEXT,
	photo_url         TEXT,
	email             TEXT,
	email_type        TEXT,
	email_status      TEXT,
	phone             TEXT,
	has_contact_info  BOOLEAN NOT NULL DEFAULT false,
	contact_source    TEXT,
	enriched          BOOLEAN NOT NULL DEFAULT false,
	scraped           BOOLEAN NOT NULL DEFAULT false,
	parsed            BOOLEAN NOT NULL DEFAULT false,
	raw_profile       JSONB,
	score             JSONB,
	is_scored         BOOLEAN NOT NULL DEFAULT false,
	is_duplicate      BOOLEAN NOT NULL DEFAULT false,
	first_seen_job_id TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(job_id, profile_url)
);

CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_candidates_job ON candidates(job_id);
CREATE INDEX IF NOT EXISTS idx_candidates_owner_url ON candidates(owner_id, profile_url);
CREATE INDEX IF NOT EXISTS idx_candidates_unscored ON candidates(job_id, is_scored);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, ownerID, description string, maxCandidates int) (*model.SourcingJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, owner_id, description, max_candidates, stage, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, ownerID, description, maxCandidates,
		string(model.StageFormatting), string(model.JobStatusCreated), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.SourcingJob{
		ID:            id,
		OwnerID:       ownerID,
		Description:   description,
		MaxCandidates: maxCandidates,
		Stage:         model.StageFormatting,
		Status:        model.JobStatusCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

const pgJobColumns = `id, owner_id, description, requirements, max_candidates,
	variants, current_variant, search_iterations, profile_urls,
	profiles_found, profiles_scraped, profiles_parsed, profiles_saved, profiles_scored,
	stage, status, error_message, error_log, created_at, updated_at, completed_at`

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.SourcingJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgJobColumns+` FROM jobs WHERE id = $1`, jobID)
	return scanPgJob(row)
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.SourcingJob, error) {
	query := `SELECT ` + pgJobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.OwnerID != "" {
		query += ` AND owner_id = ` + arg(filter.OwnerID)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.SourcingJob
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) UpdateJobStage(ctx context.Context, jobID string, stage model.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET stage = $1, updated_at = $2 WHERE id = $3`,
		string(stage), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job stage %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) SetJobRequirements(ctx context.Context, jobID string, req *model.Requirements) error {
	data, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal requirements")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET requirements = $1, updated_at = $2 WHERE id = $3`,
		data, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set requirements %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) SetJobVariants(ctx context.Context, jobID string, variants []model.QueryVariant) error {
	data, err := json.Marshal(variants)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal variants")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET variants = $1, current_variant = 0, updated_at = $2 WHERE id = $3`,
		data, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set variants %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) UpdateSearchState(ctx context.Context, jobID string, profileURLs []string, currentVariant, iterations int) error {
	data, err := json.Marshal(profileURLs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile urls")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET profile_urls = $1, profiles_found = $2, current_variant = $3, search_iterations = $4, updated_at = $5 WHERE id = $6`,
		data, len(profileURLs), currentVariant, iterations, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update search state %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, jobID string, p model.Progress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET profiles_found = $1, profiles_scraped = $2, profiles_parsed = $3, profiles_saved = $4, profiles_scored = $5, updated_at = $6 WHERE id = $7`,
		p.Found, p.Scraped, p.Parsed, p.Saved, p.Scored, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update progress %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) AppendJobError(ctx context.Context, jobID string, entry model.ErrorLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal error entry")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET error_log = COALESCE(error_log, '[]'::jsonb) || $1::jsonb, error_message = $2, updated_at = $3 WHERE id = $4`,
		data, entry.Message, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: append error log %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, stage = $2, completed_at = $3, updated_at = $4 WHERE id = $5`,
		string(model.JobStatusCompleted), string(model.StageCompleted), now, now, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) FailJob(ctx context.Context, jobID string, stage model.Stage, message string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, stage = $2, error_message = $3, completed_at = $4, updated_at = $5 WHERE id = $6`,
		string(model.JobStatusFailed), string(stage), message, now, now, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail job %s", jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) SetScrapeCheckpoint(ctx context.Context, jobID string, cp *model.ScrapeCheckpoint) error {
	return s.setCheckpoint(ctx, jobID, "scrape_checkpoint", cp)
}

func (s *PostgresStore) GetScrapeCheckpoint(ctx context.Context, jobID string) (*model.ScrapeCheckpoint, error) {
	cp := &model.ScrapeCheckpoint{}
	ok, err := s.getCheckpoint(ctx, jobID, "scrape_checkpoint", cp)
	if err != nil || !ok {
		return &model.ScrapeCheckpoint{}, err
	}
	return cp, nil
}

func (s *PostgresStore) SetParseCheckpoint(ctx context.Context, jobID string, cp *model.ParseCheckpoint) error {
	return s.setCheckpoint(ctx, jobID, "parse_checkpoint", cp)
}

func (s *PostgresStore) GetParseCheckpoint(ctx context.Context, jobID string) (*model.ParseCheckpoint, error) {
	cp := &model.ParseCheckpoint{}
	ok, err := s.getCheckpoint(ctx, jobID, "parse_checkpoint", cp)
	if err != nil || !ok {
		return &model.ParseCheckpoint{}, err
	}
	return cp, nil
}

func (s *PostgresStore) setCheckpoint(ctx context.Context, jobID, column string, cp any) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal %s", column)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET `+column+` = $1, updated_at = $2 WHERE id = $3`,
		data, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set %s for job %s", column, jobID)
	}
	return checkTag(tag, "job", jobID)
}

func (s *PostgresStore) getCheckpoint(ctx context.Context, jobID, column string, out any) (bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+column+` FROM jobs WHERE id = $1`, jobID)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, eris.Errorf("job not found: %s", jobID)
		}
		return false, eris.Wrapf(err, "postgres: get %s for job %s", column, jobID)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, eris.Wrapf(err, "postgres: unmarshal %s", column)
	}
	return true, nil
}

func (s *PostgresStore) CreateCandidate(ctx context.Context, c *model.Candidate) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	var rawJSON, scoreJSON []byte
	var err error
	if c.RawProfile != nil {
		if rawJSON, err = json.Marshal(c.RawProfile); err != nil {
			return false, eris.Wrap(err, "postgres: marshal raw profile")
		}
	}
	if c.Score != nil {
		if scoreJSON, err = json.Marshal(c.Score); err != nil {
			return false, eris.Wrap(err, "postgres: marshal score")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO candidates (
			id, job_id, owner_id, profile_url,
			full_name, headline, location, company, title, photo_url,
			email, email_type, email_status, phone, has_contact_info, contact_source,
			enriched, scraped, parsed, raw_profile, score, is_scored,
			is_duplicate, first_seen_job_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		ON CONFLICT (job_id, profile_url) DO NOTHING`,
		c.ID, c.JobID, c.OwnerID, c.ProfileURL,
		c.FullName, c.Headline, c.Location, c.Company, c.Title, c.PhotoURL,
		c.Email, c.EmailType, c.EmailStatus, c.Phone, c.HasContactInfo, c.ContactSource,
		c.Enriched, c.Scraped, c.Parsed, rawJSON, scoreJSON, c.IsScored,
		c.IsDuplicate, c.FirstSeenJobID, now, now,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert candidate %s", c.ProfileURL)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CandidateExists(ctx context.Context, jobID, profileURL string) (bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM candidates WHERE job_id = $1 AND profile_url = $2`,
		jobID, profileURL,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, eris.Wrap(err, "postgres: candidate exists")
	}
	return n > 0, nil
}

func (s *PostgresStore) CountContactable(ctx context.Context, jobID string) (int, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM candidates WHERE job_id = $1 AND has_contact_info = true`,
		jobID,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count contactable")
	}
	return n, nil
}

func (s *PostgresStore) CountCandidates(ctx context.Context, jobID string) (int, error) {
	row := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM candidates WHERE job_id = $1`, jobID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count candidates")
	}
	return n, nil
}

const pgCandidateColumns = `id, job_id, owner_id, profile_url,
	full_name, headline, location, company, title, photo_url,
	email, email_type, email_status, phone, has_contact_info, contact_source,
	enriched, scraped, parsed, raw_profile, score, is_scored,
	is_duplicate, first_seen_job_id, created_at, updated_at`

func (s *PostgresStore) ListUnscored(ctx context.Context, jobID string, limit int) ([]model.Candidate, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgCandidateColumns+` FROM candidates
		 WHERE job_id = $1 AND is_scored = false
		 ORDER BY created_at ASC LIMIT $2`,
		jobID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unscored")
	}
	defer rows.Close()
	return collectPgCandidates(rows)
}

func (s *PostgresStore) UpdateCandidateProfile(ctx context.Context, jobID, profileURL string, p *model.ParsedProfile, raw map[string]any, isDuplicate bool, firstSeenJobID string) error {
	var rawJSON []byte
	var err error
	if raw != nil {
		if rawJSON, err = json.Marshal(raw); err != nil {
			return eris.Wrap(err, "postgres: marshal raw profile")
		}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET
			full_name = $1, headline = $2, location = $3, company = $4, title = $5, photo_url = $6,
			raw_profile = COALESCE($7, raw_profile), scraped = true, parsed = true,
			is_duplicate = $8, first_seen_job_id = $9, updated_at = $10
		 WHERE job_id = $11 AND profile_url = $12`,
		p.FullName, p.Headline, p.Location, p.Company, p.Title, p.PhotoURL,
		rawJSON, isDuplicate, firstSeenJobID, time.Now().UTC(), jobID, profileURL,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate profile %s", profileURL)
	}
	return checkTag(tag, "candidate", profileURL)
}

func (s *PostgresStore) UpdateCandidateScore(ctx context.Context, candidateID string, score *model.ScoreResult) error {
	data, err := json.Marshal(score)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal score")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET score = $1, is_scored = true, updated_at = $2 WHERE id = $3`,
		data, time.Now().UTC(), candidateID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate score %s", candidateID)
	}
	return checkTag(tag, "candidate", candidateID)
}

func (s *PostgresStore) FindFirstSeen(ctx context.Context, ownerID, profileURL, excludeJobID string) (string, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT job_id FROM candidates
		 WHERE owner_id = $1 AND profile_url = $2 AND job_id != $3
		 ORDER BY created_at ASC LIMIT 1`,
		ownerID, profileURL, excludeJobID,
	)
	var jobID string
	err := row.Scan(&jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: find first seen")
	}
	return jobID, nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Candidate, error) {
	query := `SELECT ` + pgCandidateColumns + ` FROM candidates WHERE job_id = $1`
	args := []any{filter.JobID}
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.OnlyScored {
		query += ` AND is_scored = true`
	}
	if filter.MinScore > 0 {
		query += ` AND (score->>'total')::int >= ` + arg(filter.MinScore)
	}

	switch filter.SortBy {
	case "score":
		query += ` ORDER BY (score->>'total')::int DESC NULLS LAST`
	default:
		query += ` ORDER BY created_at ASC`
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()
	return collectPgCandidates(rows)
}

// helpers

func placeholder(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "$" + digits[n:n+1]
	}
	return "$" + digits[n/10:n/10+1] + digits[n%10:n%10+1]
}

func checkTag(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanPgJob(row pgx.Row) (*model.SourcingJob, error) {
	var j model.SourcingJob
	var reqJSON, variantsJSON, urlsJSON, errLogJSON []byte
	var errMsg *string
	var completedAt *time.Time

	err := row.Scan(
		&j.ID, &j.OwnerID, &j.Description, &reqJSON, &j.MaxCandidates,
		&variantsJSON, &j.CurrentVariant, &j.SearchIterations, &urlsJSON,
		&j.Progress.Found, &j.Progress.Scraped, &j.Progress.Parsed, &j.Progress.Saved, &j.Progress.Scored,
		&j.Stage, &j.Status, &errMsg, &errLogJSON, &j.CreatedAt, &j.UpdatedAt, &completedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan job")
	}

	if len(reqJSON) > 0 {
		j.Requirements = &model.Requirements{}
		if err := json.Unmarshal(reqJSON, j.Requirements); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal requirements")
		}
	}
	if len(variantsJSON) > 0 {
		if err := json.Unmarshal(variantsJSON, &j.Variants); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal variants")
		}
	}
	if len(urlsJSON) > 0 {
		if err := json.Unmarshal(urlsJSON, &j.ProfileURLs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal profile urls")
		}
	}
	if errMsg != nil {
		j.ErrorMessage = *errMsg
	}
	if len(errLogJSON) > 0 {
		if err := json.Unmarshal(errLogJSON, &j.ErrorLog); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal error log")
		}
	}
	j.CompletedAt = completedAt
	return &j, nil
}

func scanPgCandidate(row pgx.Row) (*model.Candidate, error) {
	var c model.Candidate
	var fullName, headline, location, company, title, photoURL *string
	var email, emailType, emailStatus, phone, contactSource, firstSeen *string
	var rawJSON, scoreJSON []byte

	err := row.Scan(
		&c.ID, &c.JobID, &c.OwnerID, &c.ProfileURL,
		&fullName, &headline, &location, &company, &title, &photoURL,
		&email, &emailType, &emailStatus, &phone, &c.HasContactInfo, &contactSource,
		&c.Enriched, &c.Scraped, &c.Parsed, &rawJSON, &scoreJSON, &c.IsScored,
		&c.IsDuplicate, &firstSeen, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("candidate not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan candidate")
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	c.FullName = deref(fullName)
	c.Headline = deref(headline)
	c.Location = deref(location)
	c.Company = deref(company)
	c.Title = deref(title)
	c.PhotoURL = deref(photoURL)
	c.Email = deref(email)
	c.EmailType = deref(emailType)
	c.EmailStatus = deref(emailStatus)
	c.Phone = deref(phone)
	c.ContactSource = deref(contactSource)
	c.FirstSeenJobID = deref(firstSeen)

	if len(rawJSON) > 0 {
		if err := json.Unmarshal(rawJSON, &c.RawProfile); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal raw profile")
		}
	}
	if len(scoreJSON) > 0 {
		c.Score = &model.ScoreResult{}
		if err := json.Unmarshal(scoreJSON, c.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal score")
		}
	}
	return &c, nil
}

func collectPgCandidates(rows pgx.Rows) ([]model.Candidate, error) {
	var out []model.Candidate
	for rows.Next() {
		c, err := scanPgCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate candidates")
}
