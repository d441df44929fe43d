package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/config"
	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS anchor_requests (
	request_id    TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	subject_id    TEXT NOT NULL,
	payload       JSONB NOT NULL,
	status        TEXT NOT NULL DEFAULT 'PENDING',
	tx_hash       TEXT,
	error_message TEXT,
	retry_count   INTEGER NOT NULL DEFAULT 0,
	claim_token   TEXT,
	claimed_at    TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE anchor_requests ADD COLUMN IF NOT EXISTS claim_token TEXT;
ALTER TABLE anchor_requests ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ;
CREATE INDEX IF NOT EXISTS anchor_requests_subject_idx ON anchor_requests (subject_id, created_at DESC);
CREATE INDEX IF NOT EXISTS anchor_requests_anchored_idx ON anchor_requests (updated_at) WHERE status = 'ANCHORED';
CREATE INDEX IF NOT EXISTS anchor_requests_open_idx ON anchor_requests (updated_at) WHERE status IN ('PENDING', 'PROCESSING');
`

const statusColumns = `request_id, kind, subject_id, status, COALESCE(tx_hash, ''), COALESCE(error_message, ''), retry_count,
	COALESCE(claim_token, ''), claimed_at, created_at, updated_at`

// PostgresStore is the Store backed by a pgx connection pool
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewPostgresStore connects the pool and creates the schema when missing
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.SugaredLogger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MinConns = int32(cfg.MinConnections)
	if d, err := time.ParseDuration(cfg.MaxIdleTime); err == nil {
		poolCfg.MaxConnIdleTime = d
	} else {
		logger.Warnf("Invalid database.max_idle_time '%s', using pool default", cfg.MaxIdleTime)
	}
	if d, err := time.ParseDuration(cfg.MaxLifetime); err == nil {
		poolCfg.MaxConnLifetime = d
	} else {
		logger.Warnf("Invalid database.max_lifetime '%s', using pool default", cfg.MaxLifetime)
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create anchor_requests schema: %w", err)
	}

	logger.Infof("Anchor store connected (max_connections=%d)", cfg.MaxConnections)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (p *PostgresStore) InsertAnchorRequests(ctx context.Context, requests []*models.AnchorRequest) error {
	if len(requests) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range requests {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to serialize anchor request %s: %w", r.RequestID, err)
		}
		batch.Queue(`INSERT INTO anchor_requests (request_id, kind, subject_id, payload)
			VALUES ($1, $2, $3, $4) ON CONFLICT (request_id) DO NOTHING`,
			r.RequestID, string(r.Kind), r.SubjectID, payload)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range requests {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert anchor requests: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) GetAndMarkBatchAsProcessing(ctx context.Context, requestIDs []string, maxRetries int, leaseExpiredBefore time.Time) (map[string]*AnchorStatus, error) {
	claimed := make(map[string]*AnchorStatus, len(requestIDs))
	if len(requestIDs) == 0 {
		return claimed, nil
	}

	// SET expressions see the row as it was before the update
	rows, err := p.pool.Query(ctx, `
		UPDATE anchor_requests SET
			status = CASE WHEN retry_count >= $2 THEN 'FAILED' ELSE 'PROCESSING' END,
			retry_count = CASE WHEN retry_count >= $2 THEN retry_count ELSE retry_count + 1 END,
			error_message = CASE WHEN retry_count >= $2 THEN $3 ELSE error_message END,
			claim_token = CASE WHEN retry_count >= $2 THEN NULL ELSE $4 END,
			claimed_at = now(),
			updated_at = now()
		WHERE request_id = ANY($1)
			AND (status = 'PENDING' OR (status = 'PROCESSING' AND COALESCE(claimed_at, updated_at) <= $5))
		RETURNING `+statusColumns,
		requestIDs, maxRetries, ErrMaxRetriesExceeded, uuid.NewString(), leaseExpiredBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to claim anchor requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		claimed[status.RequestID] = status
	}
	return claimed, rows.Err()
}

func (p *PostgresStore) RenewClaim(ctx context.Context, requestID, claimToken string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE anchor_requests SET claimed_at = now(), updated_at = now()
		WHERE request_id = $1 AND status = 'PROCESSING' AND claim_token = $2`, requestID, claimToken)
	if err != nil {
		return false, fmt.Errorf("failed to renew claim on anchor request %s: %w", requestID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) MarkBatchAsCompleted(ctx context.Context, completions []CompletionRecord) error {
	if len(completions) == 0 {
		return nil
	}
	ids := make([]string, len(completions))
	tokens := make([]string, len(completions))
	hashes := make([]string, len(completions))
	for i, c := range completions {
		ids[i] = c.RequestID
		tokens[i] = c.ClaimToken
		hashes[i] = c.TxHash
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE anchor_requests AS a SET status = 'ANCHORED', tx_hash = v.tx_hash, error_message = NULL, claim_token = NULL, updated_at = now()
		FROM (SELECT unnest($1::text[]) AS request_id, unnest($2::text[]) AS claim_token, unnest($3::text[]) AS tx_hash) AS v
		WHERE a.request_id = v.request_id AND a.status = 'PROCESSING' AND a.claim_token = v.claim_token`, ids, tokens, hashes)
	if err != nil {
		return fmt.Errorf("failed to mark %d anchor requests as anchored: %w", len(completions), err)
	}
	p.logLostClaims("anchored", len(completions), tag.RowsAffected())
	return nil
}

func (p *PostgresStore) MarkBatchForRetry(ctx context.Context, retries []RetryRecord) error {
	if len(retries) == 0 {
		return nil
	}
	ids := make([]string, len(retries))
	tokens := make([]string, len(retries))
	messages := make([]string, len(retries))
	for i, r := range retries {
		ids[i] = r.RequestID
		tokens[i] = r.ClaimToken
		messages[i] = r.ErrorMessage
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE anchor_requests AS a SET status = 'PENDING', error_message = v.error_message, claim_token = NULL, updated_at = now()
		FROM (SELECT unnest($1::text[]) AS request_id, unnest($2::text[]) AS claim_token, unnest($3::text[]) AS error_message) AS v
		WHERE a.request_id = v.request_id AND a.status = 'PROCESSING' AND a.claim_token = v.claim_token`, ids, tokens, messages)
	if err != nil {
		return fmt.Errorf("failed to mark %d anchor requests for retry: %w", len(retries), err)
	}
	p.logLostClaims("retry", len(retries), tag.RowsAffected())
	return nil
}

func (p *PostgresStore) MarkBatchAsFailed(ctx context.Context, failures []FailureRecord) error {
	if len(failures) == 0 {
		return nil
	}
	ids := make([]string, len(failures))
	tokens := make([]string, len(failures))
	messages := make([]string, len(failures))
	for i, f := range failures {
		ids[i] = f.RequestID
		tokens[i] = f.ClaimToken
		messages[i] = f.ErrorMessage
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE anchor_requests AS a SET status = 'FAILED', error_message = v.error_message, claim_token = NULL, updated_at = now()
		FROM (SELECT unnest($1::text[]) AS request_id, unnest($2::text[]) AS claim_token, unnest($3::text[]) AS error_message) AS v
		WHERE a.request_id = v.request_id AND a.status = 'PROCESSING' AND a.claim_token = v.claim_token`, ids, tokens, messages)
	if err != nil {
		return fmt.Errorf("failed to mark %d anchor requests as failed: %w", len(failures), err)
	}
	p.logLostClaims("failed", len(failures), tag.RowsAffected())
	return nil
}

func (p *PostgresStore) logLostClaims(outcome string, sent int, affected int64) {
	if lost := int64(sent) - affected; lost > 0 {
		p.logger.Warnf("%d of %d %s updates skipped: claim no longer held", lost, sent, outcome)
	}
}

func (p *PostgresStore) GetLatestBySubject(ctx context.Context, subjectID string) (*AnchorStatus, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+statusColumns+` FROM anchor_requests
		WHERE subject_id = $1 ORDER BY created_at DESC, request_id DESC LIMIT 1`, subjectID)
	status, err := scanStatus(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return status, err
}

func (p *PostgresStore) ListAnchoredSince(ctx context.Context, since, until time.Time, limit int) ([]*AnchorStatus, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+statusColumns+` FROM anchor_requests
		WHERE status = 'ANCHORED' AND updated_at >= $1 AND updated_at <= $2
		ORDER BY updated_at, request_id LIMIT $3`, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list anchored requests: %w", err)
	}
	defer rows.Close()

	var anchored []*AnchorStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		anchored = append(anchored, status)
	}
	return anchored, rows.Err()
}

func (p *PostgresStore) ListStalled(ctx context.Context, retryBefore, leaseExpiredBefore time.Time, limit int) ([]*models.AnchorRequest, error) {
	rows, err := p.pool.Query(ctx, `SELECT payload FROM anchor_requests
		WHERE (status = 'PENDING' AND retry_count > 0 AND updated_at <= $1)
			OR (status = 'PROCESSING' AND COALESCE(claimed_at, updated_at) <= $2)
		ORDER BY updated_at, request_id LIMIT $3`, retryBefore, leaseExpiredBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalled requests: %w", err)
	}
	defer rows.Close()

	var stalled []*models.AnchorRequest
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan stalled request: %w", err)
		}
		var request models.AnchorRequest
		if err := json.Unmarshal(payload, &request); err != nil {
			p.logger.Warnf("Skipping stalled request with unreadable payload: %v", err)
			continue
		}
		stalled = append(stalled, &request)
	}
	return stalled, rows.Err()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() {
	p.logger.Info("Closing anchor store...")
	p.pool.Close()
}

func scanStatus(row pgx.Row) (*AnchorStatus, error) {
	var s AnchorStatus
	var kind string
	var claimedAt *time.Time
	err := row.Scan(&s.RequestID, &kind, &s.SubjectID, &s.Status, &s.TxHash, &s.ErrorMessage, &s.RetryCount,
		&s.ClaimToken, &claimedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan anchor request: %w", err)
	}
	s.Kind = models.AnchorKind(kind)
	if claimedAt != nil {
		s.ClaimedAt = *claimedAt
	}
	return &s, nil
}

var _ Store = (*PostgresStore)(nil)
