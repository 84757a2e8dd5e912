package postgres

import (
	"context"
	"database/sql"
	"time"
)

type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

type UserInfo struct {
	ID                int64
	TelegramUserID    int64
	TelegramUsername  sql.NullString
	TelegramFirstName sql.NullString
	TelegramLastName  sql.NullString
	CreatedAt         time.Time
}

type AddUserParams struct {
	TelegramUserID    int64
	TelegramUsername  sql.NullString
	TelegramFirstName sql.NullString
	TelegramLastName  sql.NullString
}

const addUser = `
INSERT INTO users (telegram_user_id, telegram_username, telegram_first_name, telegram_last_name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (telegram_user_id) DO UPDATE SET
  telegram_username = EXCLUDED.telegram_username,
  telegram_first_name = EXCLUDED.telegram_first_name,
  telegram_last_name = EXCLUDED.telegram_last_name
RETURNING id, telegram_user_id, telegram_username, telegram_first_name, telegram_last_name, created_at
`

func (q *Queries) AddUser(ctx context.Context, args AddUserParams) (UserInfo, error) {
	row := q.db.QueryRowContext(ctx, addUser,
		args.TelegramUserID,
		args.TelegramUsername,
		args.TelegramFirstName,
		args.TelegramLastName,
	)
	var u UserInfo
	err := row.Scan(
		&u.ID,
		&u.TelegramUserID,
		&u.TelegramUsername,
		&u.TelegramFirstName,
		&u.TelegramLastName,
		&u.CreatedAt,
	)
	return u, err
}

type SessionRecord struct {
	ID             int64     `json:"id"`
	TelegramUserID int64     `json:"telegram_user_id"`
	Scenario       string    `json:"scenario"`
	Persona        string    `json:"persona"`
	TurnCount      int       `json:"turn_count"`
	Confidence     int       `json:"confidence_score"`
	Objection      int       `json:"objection_score"`
	Outcome        int       `json:"outcome_rating"`
	SnapshotFile   string    `json:"snapshot_file"`
	CreatedAt      time.Time `json:"created_at"`
}

type AddSessionRecordParams struct {
	TelegramUserID int64
	Scenario       string
	Persona        string
	TurnCount      int
	Confidence     int
	Objection      int
	Outcome        int
	SnapshotFile   string
}

const addSessionRecord = `
INSERT INTO sessions (telegram_user_id, scenario, persona, turn_count, confidence_score, objection_score, outcome_rating, snapshot_file)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (q *Queries) AddSessionRecord(ctx context.Context, args AddSessionRecordParams) error {
	_, err := q.db.ExecContext(ctx, addSessionRecord,
		args.TelegramUserID,
		args.Scenario,
		args.Persona,
		args.TurnCount,
		args.Confidence,
		args.Objection,
		args.Outcome,
		args.SnapshotFile,
	)
	return err
}

const listRecentSessions = `
SELECT id, telegram_user_id, scenario, persona, turn_count, confidence_score, objection_score, outcome_rating, snapshot_file, created_at
FROM sessions
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListRecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	rows, err := q.db.QueryContext(ctx, listRecentSessions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(
			&r.ID,
			&r.TelegramUserID,
			&r.Scenario,
			&r.Persona,
			&r.TurnCount,
			&r.Confidence,
			&r.Objection,
			&r.Outcome,
			&r.SnapshotFile,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
