package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scoutline/sourcing-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	description       TEXT NOT NULL,
	requirements      TEXT,
	max_candidates    INTEGER NOT NULL DEFAULT 50,
	variants          TEXT,
	current_variant   INTEGER NOT NULL DEFAULT 0,
	search_iterations INTEGER NOT NULL DEFAULT 0,
	profile_urls      TEXT,
	profiles_found    INTEGER NOT NULL DEFAULT 0,
	profiles_scraped  INTEGER NOT NULL DEFAULT 0,
	profiles_parsed   INTEGER NOT NULL DEFAULT 0,
	profiles_saved    INTEGER NOT NULL DEFAULT 0,
	profiles_scored   INTEGER NOT NULL DEFAULT 0,
	stage             TEXT NOT NULL DEFAULT 'formatting',
	status            TEXT NOT NULL DEFAULT 'created',
	error_message     TEXT,
	error_log         TEXT,
	scrape_checkpoint TEXT,
	parse_checkpoint  TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at      DATETIME
);

CREATE TABLE IF NOT EXISTS candidates (
	id                TEXT PRIMARY KEY,
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
	has_contact_info  INTEGER NOT NULL DEFAULT 0,
	contact_source    TEXT,
	enriched          INTEGER NOT NULL DEFAULT 0,
	scraped           INTEGER NOT NULL DEFAULT 0,
	parsed            INTEGER NOT NULL DEFAULT 0,
	raw_profile       TEXT,
	score             TEXT,
	is_scored         INTEGER NOT NULL DEFAULT 0,
	is_duplicate      INTEGER NOT NULL DEFAULT 0,
	first_seen_job_id TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(job_id, profile_url)
);

CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_candidates_job ON candidates(job_id);
CREATE INDEX IF NOT EXISTS idx_candidates_owner_url ON candidates(owner_id, profile_url);
CREATE INDEX IF NOT EXISTS idx_candidates_unscored ON candidates(job_id, is_scored);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, ownerID, description string, maxCandidates int) (*model.SourcingJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, owner_id, description, max_candidates, stage, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, description, maxCandidates,
		string(model.StageFormatting), string(model.JobStatusCreated), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
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

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.SourcingJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.SourcingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.SourcingJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) UpdateJobStage(ctx context.Context, jobID string, stage model.Stage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job stage %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) SetJobRequirements(ctx context.Context, jobID string, req *model.Requirements) error {
	data, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal requirements")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET requirements = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set requirements %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) SetJobVariants(ctx context.Context, jobID string, variants []model.QueryVariant) error {
	data, err := json.Marshal(variants)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal variants")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET variants = ?, current_variant = 0, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set variants %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpdateSearchState(ctx context.Context, jobID string, profileURLs []string, currentVariant, iterations int) error {
	data, err := json.Marshal(profileURLs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile urls")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET profile_urls = ?, profiles_found = ?, current_variant = ?, search_iterations = ?, updated_at = ? WHERE id = ?`,
		string(data), len(profileURLs), currentVariant, iterations, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update search state %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpdateProgress(ctx context.Context, jobID string, p model.Progress) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET profiles_found = ?, profiles_scraped = ?, profiles_parsed = ?, profiles_saved = ?, profiles_scored = ?, updated_at = ? WHERE id = ?`,
		p.Found, p.Scraped, p.Parsed, p.Saved, p.Scored, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update progress %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) AppendJobError(ctx context.Context, jobID string, entry model.ErrorLogEntry) error {
	// Read-modify-write is safe: there is at most one active execution per
	// job id by caller convention.
	row := s.db.QueryRowContext(ctx, `SELECT error_log FROM jobs WHERE id = ?`, jobID)
	var logJSON sql.NullString
	if err := row.Scan(&logJSON); err != nil {
		if err == sql.ErrNoRows {
			return eris.Errorf("job not found: %s", jobID)
		}
		return eris.Wrapf(err, "sqlite: read error log %s", jobID)
	}

	var entries []model.ErrorLogEntry
	if logJSON.Valid && logJSON.String != "" {
		if err := json.Unmarshal([]byte(logJSON.String), &entries); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal error log")
		}
	}
	entries = append(entries, entry)

	data, err := json.Marshal(entries)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal error log")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET error_log = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(data), entry.Message, time.Now().UTC(), jobID,
	)
	return eris.Wrapf(err, "sqlite: append error log %s", jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, stage = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		string(model.JobStatusCompleted), string(model.StageCompleted), now, now, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) FailJob(ctx context.Context, jobID string, stage model.Stage, message string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, stage = ?, error_message = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		string(model.JobStatusFailed), string(stage), message, now, now, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) SetScrapeCheckpoint(ctx context.Context, jobID string, cp *model.ScrapeCheckpoint) error {
	return s.setCheckpoint(ctx, jobID, "scrape_checkpoint", cp)
}

func (s *SQLiteStore) GetScrapeCheckpoint(ctx context.Context, jobID string) (*model.ScrapeCheckpoint, error) {
	cp := &model.ScrapeCheckpoint{}
	ok, err := s.getCheckpoint(ctx, jobID, "scrape_checkpoint", cp)
	if err != nil || !ok {
		return &model.ScrapeCheckpoint{}, err
	}
	return cp, nil
}

func (s *SQLiteStore) SetParseCheckpoint(ctx context.Context, jobID string, cp *model.ParseCheckpoint) error {
	return s.setCheckpoint(ctx, jobID, "parse_checkpoint", cp)
}

func (s *SQLiteStore) GetParseCheckpoint(ctx context.Context, jobID string) (*model.ParseCheckpoint, error) {
	cp := &model.ParseCheckpoint{}
	ok, err := s.getCheckpoint(ctx, jobID, "parse_checkpoint", cp)
	if err != nil || !ok {
		return &model.ParseCheckpoint{}, err
	}
	return cp, nil
}

func (s *SQLiteStore) setCheckpoint(ctx context.Context, jobID, column string, cp any) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal %s", column)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set %s for job %s", column, jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) getCheckpoint(ctx context.Context, jobID, column string, out any) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+column+` FROM jobs WHERE id = ?`, jobID)
	var data sql.NullString
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return false, eris.Errorf("job not found: %s", jobID)
		}
		return false, eris.Wrapf(err, "sqlite: get %s for job %s", column, jobID)
	}
	if !data.Valid || data.String == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(data.String), out); err != nil {
		return false, eris.Wrapf(err, "sqlite: unmarshal %s", column)
	}
	return true, nil
}

func (s *SQLiteStore) CreateCandidate(ctx context.Context, c *model.Candidate) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	rawJSON, err := marshalNullable(c.RawProfile)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal raw profile")
	}
	scoreJSON, err := marshalNullable(c.Score)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal score")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO candidates (
			id, job_id, owner_id, profile_url,
			full_name, headline, location, company, title, photo_url,
			email, email_type, email_status, phone, has_contact_info, contact_source,
			enriched, scraped, parsed, raw_profile, score, is_scored,
			is_duplicate, first_seen_job_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, profile_url) DO NOTHING`,
		c.ID, c.JobID, c.OwnerID, c.ProfileURL,
		c.FullName, c.Headline, c.Location, c.Company, c.Title, c.PhotoURL,
		c.Email, c.EmailType, c.EmailStatus, c.Phone, c.HasContactInfo, c.ContactSource,
		c.Enriched, c.Scraped, c.Parsed, rawJSON, scoreJSON, c.IsScored,
		c.IsDuplicate, c.FirstSeenJobID, now, now,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert candidate %s", c.ProfileURL)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) CandidateExists(ctx context.Context, jobID, profileURL string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM candidates WHERE job_id = ? AND profile_url = ?`,
		jobID, profileURL,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, eris.Wrap(err, "sqlite: candidate exists")
	}
	return n > 0, nil
}

func (s *SQLiteStore) CountContactable(ctx context.Context, jobID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM candidates WHERE job_id = ? AND has_contact_info = 1`,
		jobID,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count contactable")
	}
	return n, nil
}

func (s *SQLiteStore) CountCandidates(ctx context.Context, jobID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM candidates WHERE job_id = ?`, jobID,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count candidates")
	}
	return n, nil
}

func (s *SQLiteStore) ListUnscored(ctx context.Context, jobID string, limit int) ([]model.Candidate, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE job_id = ? AND is_scored = 0
		 ORDER BY created_at ASC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unscored")
	}
	defer rows.Close()
	return collectCandidates(rows)
}

func (s *SQLiteStore) UpdateCandidateProfile(ctx context.Context, jobID, profileURL string, p *model.ParsedProfile, raw map[string]any, isDuplicate bool, firstSeenJobID string) error {
	rawJSON, err := marshalNullable(raw)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal raw profile")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET
			full_name = ?, headline = ?, location = ?, company = ?, title = ?, photo_url = ?,
			raw_profile = COALESCE(?, raw_profile), scraped = 1, parsed = 1,
			is_duplicate = ?, first_seen_job_id = ?, updated_at = ?
		 WHERE job_id = ? AND profile_url = ?`,
		p.FullName, p.Headline, p.Location, p.Company, p.Title, p.PhotoURL,
		rawJSON, isDuplicate, firstSeenJobID, time.Now().UTC(), jobID, profileURL,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update candidate profile %s", profileURL)
	}
	return checkRowsAffected(res, "candidate", profileURL)
}

func (s *SQLiteStore) UpdateCandidateScore(ctx context.Context, candidateID string, score *model.ScoreResult) error {
	scoreJSON, err := marshalNullable(score)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal score")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET score = ?, is_scored = 1, updated_at = ? WHERE id = ?`,
		scoreJSON, time.Now().UTC(), candidateID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update candidate score %s", candidateID)
	}
	return checkRowsAffected(res, "candidate", candidateID)
}

func (s *SQLiteStore) FindFirstSeen(ctx context.Context, ownerID, profileURL, excludeJobID string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id FROM candidates
		 WHERE owner_id = ? AND profile_url = ? AND job_id != ?
		 ORDER BY created_at ASC LIMIT 1`,
		ownerID, profileURL, excludeJobID,
	)
	var jobID string
	err := row.Scan(&jobID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: find first seen")
	}
	return jobID, nil
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE job_id = ?`
	args := []any{filter.JobID}

	if filter.OnlyScored {
		query += ` AND is_scored = 1`
	}
	if filter.MinScore > 0 {
		query += ` AND json_extract(score, '$.total') >= ?`
		args = append(args, filter.MinScore)
	}

	switch filter.SortBy {
	case "score":
		query += ` ORDER BY json_extract(score, '$.total') DESC`
	default:
		query += ` ORDER BY created_at ASC`
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates")
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// helpers

const jobColumns = `id, owner_id, description, requirements, max_candidates,
	variants, current_variant, search_iterations, profile_urls,
	profiles_found, profiles_scraped, profiles_parsed, profiles_saved, profiles_scored,
	stage, status, error_message, error_log, created_at, updated_at, completed_at`

const candidateColumns = `id, job_id, owner_id, profile_url,
	full_name, headline, location, company, title, photo_url,
	email, email_type, email_status, phone, has_contact_info, contact_source,
	enriched, scraped, parsed, raw_profile, score, is_scored,
	is_duplicate, first_seen_job_id, created_at, updated_at`

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case *model.ScoreResult:
		if val == nil {
			return sql.NullString{}, nil
		}
	case map[string]any:
		if val == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.SourcingJob, error) {
	var j model.SourcingJob
	var reqJSON, variantsJSON, urlsJSON, errMsg, errLogJSON sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.OwnerID, &j.Description, &reqJSON, &j.MaxCandidates,
		&variantsJSON, &j.CurrentVariant, &j.SearchIterations, &urlsJSON,
		&j.Progress.Found, &j.Progress.Scraped, &j.Progress.Parsed, &j.Progress.Saved, &j.Progress.Scored,
		&j.Stage, &j.Status, &errMsg, &errLogJSON, &j.CreatedAt, &j.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	if reqJSON.Valid && reqJSON.String != "" {
		j.Requirements = &model.Requirements{}
		if err := json.Unmarshal([]byte(reqJSON.String), j.Requirements); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal requirements")
		}
	}
	if variantsJSON.Valid && variantsJSON.String != "" {
		if err := json.Unmarshal([]byte(variantsJSON.String), &j.Variants); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal variants")
		}
	}
	if urlsJSON.Valid && urlsJSON.String != "" {
		if err := json.Unmarshal([]byte(urlsJSON.String), &j.ProfileURLs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal profile urls")
		}
	}
	if errMsg.Valid {
		j.ErrorMessage = errMsg.String
	}
	if errLogJSON.Valid && errLogJSON.String != "" {
		if err := json.Unmarshal([]byte(errLogJSON.String), &j.ErrorLog); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal error log")
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

func scanCandidate(row scannable) (*model.Candidate, error) {
	var c model.Candidate
	var fullName, headline, location, company, title, photoURL sql.NullString
	var email, emailType, emailStatus, phone, contactSource, firstSeen sql.NullString
	var rawJSON, scoreJSON sql.NullString

	err := row.Scan(
		&c.ID, &c.JobID, &c.OwnerID, &c.ProfileURL,
		&fullName, &headline, &location, &company, &title, &photoURL,
		&email, &emailType, &emailStatus, &phone, &c.HasContactInfo, &contactSource,
		&c.Enriched, &c.Scraped, &c.Parsed, &rawJSON, &scoreJSON, &c.IsScored,
		&c.IsDuplicate, &firstSeen, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.New("candidate not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan candidate")
	}

	c.FullName = fullName.String
	c.Headline = headline.String
	c.Location = location.String
	c.Company = company.String
	c.Title = title.String
	c.PhotoURL = photoURL.String
	c.Email = email.String
	c.EmailType = emailType.String
	c.EmailStatus = emailStatus.String
	c.Phone = phone.String
	c.ContactSource = contactSource.String
	c.FirstSeenJobID = firstSeen.String

	if rawJSON.Valid && rawJSON.String != "" {
		if err := json.Unmarshal([]byte(rawJSON.String), &c.RawProfile); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal raw profile")
		}
	}
	if scoreJSON.Valid && scoreJSON.String != "" {
		c.Score = &model.ScoreResult{}
		if err := json.Unmarshal([]byte(scoreJSON.String), c.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal score")
		}
	}
	return &c, nil
}

func collectCandidates(rows *sql.Rows) ([]model.Candidate, error) {
	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate candidates")
}
