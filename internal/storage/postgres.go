package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/types"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore connects the pool and verifies it with a ping.
func NewPostgresStore(ctx context.Context, databaseURL string, logger zerolog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("postgres store initialized")

	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// callStageColumns is the select list shared by all call stage queries.
const callStageColumns = `
	c.id, c.campaign_id, c.number, c.call_id, c.stage, c.timestamp,
	c.transferred, rc.name AS category_name, rc.color AS category_color,
	v.name AS voice_name, c.transcription, c.list_id`

const callStageFrom = `
	FROM call_stages c
	LEFT JOIN response_categories rc ON rc.id = c.response_category_id
	LEFT JOIN voices v ON v.id = c.voice_id`

// buildCallFilter renders the filter into a WHERE clause with numbered
// parameters, continuing from the given argument list.
func buildCallFilter(f CallFilter, args []any) (string, []any) {
	var conds []string

	if len(f.CampaignIDs) > 0 {
		args = append(args, f.CampaignIDs)
		conds = append(conds, fmt.Sprintf("c.campaign_id = ANY($%d)", len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		conds = append(conds, fmt.Sprintf("c.timestamp >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		conds = append(conds, fmt.Sprintf("c.timestamp <= $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("c.number ILIKE $%d", len(args)))
	}
	if f.ListID != "" {
		args = append(args, f.ListID)
		conds = append(conds, fmt.Sprintf("c.list_id = $%d", len(args)))
	}
	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		conds = append(conds, fmt.Sprintf("rc.name = ANY($%d)", len(args)))
	}
	if len(f.Numbers) > 0 {
		args = append(args, f.Numbers)
		conds = append(conds, fmt.Sprintf("c.number = ANY($%d)", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PostgresStore) ListCallStages(ctx context.Context, f CallFilter) ([]types.CallStageRecord, error) {
	where, args := buildCallFilter(f, nil)
	query := "SELECT" + callStageColumns + callStageFrom + where + " ORDER BY c.timestamp, c.id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query call stages: %w", err)
	}
	defer rows.Close()

	return scanCallStages(rows)
}

// ListWindowedFinalStages groups stages into sessions inside Postgres: a new
// session starts when the number changes or the gap to the previous stage of
// the same number exceeds the window, and only the session's highest stage
// row survives (later timestamp wins a stage tie).
func (s *PostgresStore) ListWindowedFinalStages(ctx context.Context, f CallFilter, window time.Duration) ([]types.CallStageRecord, error) {
	args := []any{window.Seconds()}
	where, args := buildCallFilter(f, args)

	query := `
		WITH filtered AS (
			SELECT` + callStageColumns + `,
				CASE WHEN c.timestamp - LAG(c.timestamp) OVER w > make_interval(secs => $1)
					OR LAG(c.timestamp) OVER w IS NULL THEN 1 ELSE 0 END AS session_start
			` + callStageFrom + where + `
			WINDOW w AS (PARTITION BY c.number ORDER BY c.timestamp, c.id)
		),
		sessions AS (
			SELECT *,
				SUM(session_start) OVER (PARTITION BY number ORDER BY timestamp, id) AS session_seq
			FROM filtered
		)
		SELECT id, campaign_id, number, call_id, stage, timestamp,
			transferred, category_name, category_color, voice_name,
			transcription, list_id
		FROM (
			SELECT *,
				ROW_NUMBER() OVER (
					PARTITION BY number, session_seq
					ORDER BY COALESCE(stage, 0) DESC, timestamp DESC, id DESC
				) AS rn
			FROM sessions
		) ranked
		WHERE rn = 1
		ORDER BY timestamp, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query windowed final stages: %w", err)
	}
	defer rows.Close()

	return scanCallStages(rows)
}

func scanCallStages(rows pgx.Rows) ([]types.CallStageRecord, error) {
	var records []types.CallStageRecord
	for rows.Next() {
		var r types.CallStageRecord
		if err := rows.Scan(
			&r.ID, &r.CampaignID, &r.Number, &r.CallID, &r.Stage, &r.Timestamp,
			&r.Transferred, &r.ResponseCategory, &r.CategoryColor, &r.VoiceName,
			&r.Transcription, &r.ListID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call stage: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call stages: %w", err)
	}
	return records, nil
}

const campaignColumns = `
	cp.id, cp.client_id, cl.name, cp.name, cp.model_name, cp.is_active,
	(SELECT cs.status FROM campaign_statuses cs
		WHERE cs.campaign_id = cp.id ORDER BY cs.changed_at DESC LIMIT 1)`

const campaignFrom = `
	FROM campaigns cp
	JOIN clients cl ON cl.id = cp.client_id`

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]types.Campaign, error) {
	query := "SELECT" + campaignColumns + campaignFrom + " ORDER BY cl.name, cp.name"
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	return scanCampaigns(rows)
}

func (s *PostgresStore) ListCampaignsForClient(ctx context.Context, clientID int64) ([]types.Campaign, error) {
	query := "SELECT" + campaignColumns + campaignFrom + " WHERE cp.client_id = $1 ORDER BY cp.name"
	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query client campaigns: %w", err)
	}
	defer rows.Close()

	return scanCampaigns(rows)
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id int64) (*types.Campaign, error) {
	query := "SELECT" + campaignColumns + campaignFrom + " WHERE cp.id = $1"
	var c types.Campaign
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.ClientID, &c.ClientName, &c.CampaignName, &c.ModelName,
		&c.IsActive, &c.CurrentStatus,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign: %w", err)
	}
	return &c, nil
}

// CampaignActiveSince returns when the campaign last entered an active
// status, or nil when it never has.
func (s *PostgresStore) CampaignActiveSince(ctx context.Context, id int64) (*time.Time, error) {
	query := `
		SELECT cs.changed_at FROM campaign_statuses cs
		WHERE cs.campaign_id = $1 AND cs.status IN ($2, $3)
		ORDER BY cs.changed_at DESC LIMIT 1`

	var since time.Time
	err := s.pool.QueryRow(ctx, query, id, types.StatusEnabled, types.StatusTesting).Scan(&since)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign status history: %w", err)
	}
	return &since, nil
}

func scanCampaigns(rows pgx.Rows) ([]types.Campaign, error) {
	var campaigns []types.Campaign
	for rows.Next() {
		var c types.Campaign
		if err := rows.Scan(
			&c.ID, &c.ClientID, &c.ClientName, &c.CampaignName, &c.ModelName,
			&c.IsActive, &c.CurrentStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	query := `
		SELECT id, email, password_hash, roles, is_active
		FROM users WHERE lower(email) = lower($1)`

	var u types.User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Roles, &u.IsActive,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// ClientIDForUser resolves a client account or a member account to the
// client whose data it is scoped to.
func (s *PostgresStore) ClientIDForUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT id FROM clients WHERE user_id = $1
		UNION
		SELECT client_id FROM client_members WHERE user_id = $1
		LIMIT 1`

	var clientID int64
	err := s.pool.QueryRow(ctx, query, userID).Scan(&clientID)
	if err == pgx.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query client membership: %w", err)
	}
	return clientID, nil
}

func (s *PostgresStore) ListResponseCategories(ctx context.Context) ([]types.ResponseCategory, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, color FROM response_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query response categories: %w", err)
	}
	defer rows.Close()

	var categories []types.ResponseCategory
	for rows.Next() {
		var c types.ResponseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("failed to scan response category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response categories: %w", err)
	}
	return categories, nil
}

func (s *PostgresStore) ListVoices(ctx context.Context) ([]types.Voice, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM voices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query voices: %w", err)
	}
	defer rows.Close()

	var voices []types.Voice
	for rows.Next() {
		var v types.Voice
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan voice: %w", err)
		}
		voices = append(voices, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read voices: %w", err)
	}
	return voices, nil
}

func (s *PostgresStore) GetVoice(ctx context.Context, id int64) (*types.Voice, error) {
	var v types.Voice
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM voices WHERE id = $1`, id).Scan(&v.ID, &v.Name)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query voice: %w", err)
	}
	return &v, nil
}

// CreateVoices inserts the given names, skipping ones that already exist,
// and returns the newly created rows.
func (s *PostgresStore) CreateVoices(ctx context.Context, names []string) ([]types.Voice, error) {
	query := `
		INSERT INTO voices (name)
		SELECT unnest($1::text[])
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name`

	rows, err := s.pool.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to insert voices: %w", err)
	}
	defer rows.Close()

	var voices []types.Voice
	for rows.Next() {
		var v types.Voice
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan voice: %w", err)
		}
		voices = append(voices, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inserted voices: %w", err)
	}
	return voices, nil
}

func (s *PostgresStore) DeleteVoices(ctx context.Context, ids []int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM voices WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete voices: %w", err)
	}
	return tag.RowsAffected(), nil
}
