package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/zhouzirui/hcp-logger/backend/internal/store"
)

func (d *DB) EnsureInteractionTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interaction_logs (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			uid                 TEXT    NOT NULL UNIQUE,
			hcp_name            TEXT    NOT NULL,
			interaction_date    TEXT    NOT NULL,
			interaction_time    TEXT,
			interaction_type    TEXT    NOT NULL DEFAULT 'Meeting',
			attendees           TEXT    NOT NULL DEFAULT '[]',
			topics_discussed    TEXT    NOT NULL,
			materials_shared    TEXT    NOT NULL DEFAULT '[]',
			samples_distributed TEXT    NOT NULL DEFAULT '[]',
			hcp_sentiment       TEXT,
			outcomes            TEXT,
			follow_up_actions   TEXT,
			created_ts          BIGINT  NOT NULL DEFAULT (strftime('%s', 'now'))
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := d.db.ExecContext(ctx, stmt,
		create.UID, create.HCPName, create.InteractionDate, nullable(create.InteractionTime), create.InteractionType,
		attendees, create.TopicsDiscussed, materials, samples,
		nullable(create.HCPSentiment), nullable(create.Outcomes), nullable(create.FollowUpActions), create.CreatedTs,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateUID
		}
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	create.ID = int32(id)
	return create, nil
}

func (d *DB) ListInteractions(ctx context.Context, find *store.FindInteraction) ([]*store.Interaction, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}
	if v := find.HCPName; v != nil {
		where, args = append(where, "hcp_name = ?"), append(args, *v)
	}

	query := fmt.Sprintf(`SELECT id, uid, hcp_name, interaction_date, COALESCE(interaction_time, ''), interaction_type,
			attendees, topics_discussed, materials_shared, samples_distributed,
			COALESCE(hcp_sentiment, ''), COALESCE(outcomes, ''), COALESCE(follow_up_actions, ''), created_ts
		FROM interaction_logs WHERE %s ORDER BY created_ts DESC, id DESC`, strings.Join(where, " AND "))
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

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE"))
	}
	return false
}
