package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// PostgresSink archives audit events to a relational table for long-term
// compliance retention and ad hoc querying.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a PostgreSQL-backed audit sink.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Name identifies the sink in logs and health reporting.
func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the audit_events table if it does not exist.
// Called once at startup.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS audit_events (
			id                 UUID PRIMARY KEY,
			category           TEXT NOT NULL,
			ts                 TIMESTAMPTZ NOT NULL,
			action             TEXT NOT NULL,
			subject_id         TEXT,
			client_id          TEXT,
			consent_id         TEXT,
			actor_id           TEXT,
			actor_type         TEXT,
			decision           TEXT,
			reasons            JSONB,
			requested_scopes   JSONB,
			requested_accounts JSONB,
			previous_status    TEXT,
			new_status         TEXT,
			reason             TEXT,
			request_id         TEXT,
			client_ip          TEXT,
			device_summary     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_subject ON audit_events (subject_id, ts DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_events_category ON audit_events (category, ts DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit_events schema: %w", err)
	}
	return nil
}

// Append inserts the event. Inserts are idempotent on event ID so a sink
// retry can never duplicate an entry.
func (s *PostgresSink) Append(ctx context.Context, event Event) error {
	reasons, err := marshalList(event.Reasons)
	if err != nil {
		return err
	}
	scopes, err := marshalList(event.RequestedScopes)
	if err != nil {
		return err
	}
	accounts, err := marshalList(event.RequestedAccounts)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO audit_events (
			id, category, ts, action, subject_id, client_id, consent_id,
			actor_id, actor_type, decision, reasons, requested_scopes,
			requested_accounts, previous_status, new_status, reason,
			request_id, client_ip, device_summary
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		event.EventID,
		string(event.Category),
		event.Timestamp,
		string(event.Action),
		event.SubjectID.String(),
		event.ClientID.String(),
		event.ConsentID.String(),
		event.ActorID,
		event.ActorType.String(),
		event.Decision,
		reasons,
		scopes,
		accounts,
		event.PreviousStatus,
		event.NewStatus,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.DeviceSummary,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns all archived events for a subject, oldest first.
func (s *PostgresSink) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]Event, error) {
	const query = `
		SELECT id, category, ts, action, subject_id, client_id, consent_id,
			   actor_id, actor_type, decision, reasons, requested_scopes,
			   requested_accounts, previous_status, new_status, reason,
			   request_id, client_ip, device_summary
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY ts ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e                         Event
			subject, client, consent  string
			actorType                 string
			reasons, scopes, accounts []byte
		)
		if err := rows.Scan(
			&e.EventID, &e.Category, &e.Timestamp, &e.Action,
			&subject, &client, &consent,
			&e.ActorID, &actorType, &e.Decision,
			&reasons, &scopes, &accounts,
			&e.PreviousStatus, &e.NewStatus, &e.Reason,
			&e.RequestID, &e.ClientIP, &e.DeviceSummary,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		e.SubjectID = id.SubjectID(subject)
		e.ClientID = id.ClientID(client)
		e.ConsentID = id.ConsentID(consent)
		e.ActorType = id.ActorType(actorType)
		if e.Reasons, err = unmarshalList(reasons); err != nil {
			return nil, err
		}
		if e.RequestedScopes, err = unmarshalList(scopes); err != nil {
			return nil, err
		}
		if e.RequestedAccounts, err = unmarshalList(accounts); err != nil {
			return nil, err
		}

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func marshalList(values []string) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal audit list: %w", err)
	}
	return b, nil
}

func unmarshalList(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("unmarshal audit list: %w", err)
	}
	return values, nil
}
