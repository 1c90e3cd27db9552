package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver

	"github.com/threatguard/threatguard/internal/event"
	"github.com/threatguard/threatguard/internal/filter"
)

// schemaSQL is embedded so the server can self-bootstrap its table.
//
//go:embed schema.sql
var schemaSQL string

const eventColumns = `id, event_type, ip_address, user_agent, endpoint, method,
	request_body, request_headers, attack_pattern, payload, severity, blocked,
	country, city, region, user_id, user_email, session_id,
	response_status, response_time, rate_limit_info, tags,
	processed, processed_at, ts`

// PostgresStore is the durable Store implementation.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool, fails fast if the database is
// unreachable, and applies the embedded schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresStore: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresStore: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresStore schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Insert(ctx context.Context, e *event.SecurityEvent) error {
	tags, err := marshalTags(e.Tags)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO securityevents (
			id, event_type, ip_address, user_agent, endpoint, method,
			request_body, request_headers, attack_pattern, payload, severity, blocked,
			country, city, region, user_id, user_email, session_id,
			response_status, response_time, rate_limit_info, tags,
			processed, processed_at, ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
		          $19,$20,$21,$22,$23,$24,$25)`,
		e.ID, e.EventType, e.IPAddress, e.UserAgent, e.Endpoint, e.Method,
		nilIfEmptyJSON(e.RequestBody), nilIfEmptyJSON(e.RequestHeaders),
		e.AttackPattern, e.Payload, string(e.Severity), e.Blocked,
		e.Country, e.City, e.Region, e.UserID, e.UserEmail, e.SessionID,
		e.ResponseStatus, e.ResponseTime, nilIfEmptyJSON(e.RateLimitInfo), tags,
		e.Processed, e.ProcessedAt, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

// whereFor translates a filter to SQL conditions. The time cutoff is computed
// once here, by the same arithmetic the client-side filter uses.
func whereFor(f filter.Filter, now time.Time) (string, []any) {
	var conds []string
	var args []any

	if f.Severity != "" && f.Severity != filter.All {
		args = append(args, f.Severity)
		conds = append(conds, fmt.Sprintf("severity = $%d", len(args)))
	}
	if f.EventType != "" && f.EventType != filter.All {
		args = append(args, f.EventType)
		conds = append(conds, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if cutoff, ok := f.CutoffAt(now); ok {
		args = append(args, cutoff)
		conds = append(conds, fmt.Sprintf("ts >= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (p *PostgresStore) List(ctx context.Context, f filter.Filter, page, pageSize int) ([]event.SecurityEvent, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = SeverityQueryLimit
	}

	where, args := whereFor(f, time.Now())

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM securityevents"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("List count: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM securityevents%s ORDER BY ts DESC, seq ASC LIMIT $%d OFFSET $%d",
		eventColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	events, err := p.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return events, total, nil
}

func (p *PostgresStore) Matching(ctx context.Context, f filter.Filter) ([]event.SecurityEvent, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, args := whereFor(f, time.Now())
	query := fmt.Sprintf("SELECT %s FROM securityevents%s ORDER BY ts DESC, seq ASC", eventColumns, where)
	events, err := p.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Matching: %w", err)
	}
	return events, nil
}

func (p *PostgresStore) BySeverity(ctx context.Context, sev event.Severity) ([]event.SecurityEvent, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM securityevents WHERE severity = $1 ORDER BY ts DESC, seq ASC LIMIT $2",
		eventColumns,
	)
	events, err := p.queryEvents(ctx, query, string(sev), SeverityQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("BySeverity: %w", err)
	}
	return events, nil
}

func (p *PostgresStore) ByTimeRange(ctx context.Context, start, end time.Time) ([]event.SecurityEvent, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM securityevents WHERE ts >= $1 AND ts <= $2 ORDER BY ts DESC, seq ASC LIMIT $3",
		eventColumns,
	)
	events, err := p.queryEvents(ctx, query, start, end, SeverityQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("ByTimeRange: %w", err)
	}
	return events, nil
}

// Stats aggregates the matching set in one SQL pass. Severity counters match
// exact labels only, so rows with an out-of-enum severity raise total without
// touching them.
func (p *PostgresStore) Stats(ctx context.Context, f filter.Filter) (event.Stats, error) {
	if err := f.Validate(); err != nil {
		return event.Stats{}, err
	}
	where, args := whereFor(f, time.Now())

	var s event.Stats
	err := p.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE severity = 'CRITICAL'),
		       count(*) FILTER (WHERE severity = 'HIGH'),
		       count(*) FILTER (WHERE severity = 'MEDIUM'),
		       count(*) FILTER (WHERE severity = 'LOW'),
		       count(*) FILTER (WHERE blocked),
		       count(*) FILTER (WHERE processed)
		FROM securityevents`+where, args...,
	).Scan(&s.Total, &s.Critical, &s.High, &s.Medium, &s.Low, &s.Blocked, &s.Processed)
	if err != nil {
		return event.Stats{}, fmt.Errorf("Stats: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Patterns(ctx context.Context, f filter.Filter) ([]event.PatternCount, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, args := whereFor(f, time.Now())

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT attack_pattern, count(*) AS count
		FROM securityevents%s
		GROUP BY attack_pattern
		ORDER BY count DESC
		LIMIT %d`, where, 10), args...)
	if err != nil {
		return nil, fmt.Errorf("Patterns: %w", err)
	}
	defer rows.Close()

	var patterns []event.PatternCount
	for rows.Next() {
		var pc event.PatternCount
		if err := rows.Scan(&pc.Pattern, &pc.Count); err != nil {
			return nil, fmt.Errorf("Patterns scan: %w", err)
		}
		patterns = append(patterns, pc)
	}
	return patterns, rows.Err()
}

func (p *PostgresStore) SetProcessed(ctx context.Context, id string, processed bool) (*event.SecurityEvent, error) {
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE securityevents
		SET processed = $2,
		    processed_at = CASE WHEN $2 THEN now() ELSE NULL END
		WHERE id = $1
		RETURNING %s`, eventColumns),
		id, processed,
	)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("SetProcessed: %w", err)
	}
	return e, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) Close() {
	_ = p.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*event.SecurityEvent, error) {
	var (
		e           event.SecurityEvent
		body        []byte
		headers     []byte
		rateLimit   []byte
		tags        []byte
		severity    string
		processedAt sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.EventType, &e.IPAddress, &e.UserAgent, &e.Endpoint, &e.Method,
		&body, &headers, &e.AttackPattern, &e.Payload, &severity, &e.Blocked,
		&e.Country, &e.City, &e.Region, &e.UserID, &e.UserEmail, &e.SessionID,
		&e.ResponseStatus, &e.ResponseTime, &rateLimit, &tags,
		&e.Processed, &processedAt, &e.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	e.Severity = event.Severity(severity)
	e.RequestBody = json.RawMessage(body)
	e.RequestHeaders = json.RawMessage(headers)
	e.RateLimitInfo = json.RawMessage(rateLimit)
	if processedAt.Valid {
		t := processedAt.Time
		e.ProcessedAt = &t
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &e.Tags); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
	}
	return &e, nil
}

func (p *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]event.SecurityEvent, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []event.SecurityEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func nilIfEmptyJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	return json.Marshal(tags)
}
