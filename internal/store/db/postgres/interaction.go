package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
)

const uniqueViolation = pq.ErrorCode("23505")

func (d *DB) EnsureInteractionTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interaction_logs (
			id                  SERIAL PRIMARY KEY,
			uid                 TEXT         NOT NULL UNIQUE,
			hcp_name            VARCHAR(255) NOT NULL,
			interaction_date    DATE         NOT NULL,
			interaction_time    TIME,
			interaction_type    VARCHAR(100) NOT NULL DEFAULT 'Meeting',
			attendees           JSONB        NOT NULL DEFAULT '[]',
			topics_discussed    TEXT         NOT NULL,
			materials_shared    JSONB        NOT NULL DEFAULT '[]',
			samples_distributed JSONB        NOT NULL DEFAULT '[]',
			hcp_sentiment       VARCHAR(100),
			outcomes            TEXT,
			follow_up_actions   TEXT,
			created_ts          BIGINT       NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_hcp_name ON interaction_logs(hcp_name)`,
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) CreateInteraction(ctx context.Context, create *store.Interaction) (*store.Interaction, error) {
	attendees, err := store.EncodeList(create.Attendees)
	if err != nil {
		return nil, err
	}
	materials, err := store.EncodeList(create.MaterialsShared)
	if err != nil {
		return nil, err
	}
	samples, err := store.EncodeList(create.SamplesDistributed)
	if err != nil {
		return nil, err
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO interaction_logs (
			uid, hcp_name, interaction_date, interaction_time, interaction_type, attendees, topics_discussed,
			materials_shared, samples_distributed, hcp_sentiment, outcomes, follow_up_actions, created_ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.HCPName, create.InteractionDate, nullable(create.InteractionTime), create.InteractionType,
		attendees, create.TopicsDiscussed, materials, samples,
		nullable(create.HCPSentiment), nullable(create.Outcomes), nullable(create.FollowUpActions), create.CreatedTs,
	).Scan(&create.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, store.ErrDuplicateUID
		}
		return nil, err
	}
	return create, nil
}

func (d *DB) ListInteractions(ctx context.Context, find *store.FindInteraction) ([]*store.Interaction, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.HCPName; v != nil {
		where, args = append(where, "hcp_name = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, hcp_name, to_char(interaction_date, 'YYYY-MM-DD'),
			COALESCE(to_char(interaction_time, 'HH24:MI'), ''), interaction_type,
			attendees::text, topics_discussed, materials_shared::text, samples_distributed::text,
			COALESCE(hcp_sentiment, ''), COALESCE(outcomes, ''), COALESCE(follow_up_actions, ''), created_ts
		FROM interaction_logs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.Interaction
	for rows.Next() {
		var (
			i                             store.Interaction
			attendees, materials, samples string
		)
		if err := rows.Scan(&i.ID, &i.UID, &i.HCPName, &i.InteractionDate, &i.InteractionTime, &i.InteractionType,
			&attendees, &i.TopicsDiscussed, &materials, &samples,
			&i.HCPSentiment, &i.Outcomes, &i.FollowUpActions, &i.CreatedTs); err != nil {
			return nil, err
		}
		if i.Attendees, err = store.DecodeList(attendees); err != nil {
			return nil, err
		}
		if i.MaterialsShared, err = store.DecodeList(materials); err != nil {
			return nil, err
		}
		if i.SamplesDistributed, err = store.DecodeList(samples); err != nil {
			return nil, err
		}
		list = append(list, &i)
	}
	return list, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
