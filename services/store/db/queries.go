package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const resultExists = `
SELECT EXISTS(
    SELECT 1 FROM results WHERE lesson_id = ? AND exam_type = ?
)`

type ResultExistsParams struct {
	LessonID string
	ExamType string
}

func (q *Queries) ResultExists(ctx context.Context, arg ResultExistsParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, resultExists, arg.LessonID, arg.ExamType)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const insertResult = `
INSERT INTO results (lesson_id, lesson_name, exam_type, score, created_at)
VALUES (?, ?, ?, ?, ?)`

type InsertResultParams struct {
	LessonID   string
	LessonName string
	ExamType   string
	Score      float64
	CreatedAt  int64
}

func (q *Queries) InsertResult(ctx context.Context, arg InsertResultParams) error {
	_, err := q.db.ExecContext(ctx, insertResult,
		arg.LessonID,
		arg.LessonName,
		arg.ExamType,
		arg.Score,
		arg.CreatedAt,
	)
	return err
}

const getAlertLastSent = `
SELECT last_sent FROM alerts WHERE kind = ?`

func (q *Queries) GetAlertLastSent(ctx context.Context, kind string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getAlertLastSent, kind)
	var lastSent int64
	err := row.Scan(&lastSent)
	return lastSent, err
}

const markAlertSent = `
INSERT INTO alerts (kind, last_sent) VALUES (?, ?)
ON CONFLICT (kind) DO UPDATE SET last_sent = excluded.last_sent`

type MarkAlertSentParams struct {
	Kind     string
	LastSent int64
}

func (q *Queries) MarkAlertSent(ctx context.Context, arg MarkAlertSentParams) error {
	_, err := q.db.ExecContext(ctx, markAlertSent, arg.Kind, arg.LastSent)
	return err
}
