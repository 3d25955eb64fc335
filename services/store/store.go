package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"beykent-notifier/lib/scrapers/obs"
	"beykent-notifier/lib/timezone"
	"beykent-notifier/services/store/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/store")

// re-send a still-standing contact info alert at most once a day
// instead of on every run
const alertResendInterval = 24 * time.Hour

// Store is the durable seen-set behind result deduplication, plus the
// alert send log. Access is read-then-write from a single sequential
// extraction pass; the unique index on (lesson_id, exam_type) is the
// backstop should that ever change.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func New(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func (s Store) Exists(ctx context.Context, lessonID string, examType obs.ExamType) (bool, error) {
	ctx, span := tracer.Start(ctx, "Exists")
	defer span.End()
	span.SetAttributes(
		attribute.String("lesson_id", lessonID),
		attribute.String("exam_type", string(examType)),
	)

	exists, err := s.qry.ResultExists(ctx, db.ResultExistsParams{
		LessonID: lessonID,
		ExamType: string(examType),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return exists, nil
}

func (s Store) Insert(ctx context.Context, r obs.Result) error {
	ctx, span := tracer.Start(ctx, "Insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("lesson_id", r.LessonID),
		attribute.String("exam_type", string(r.ExamType)),
	)

	err := s.qry.InsertResult(ctx, db.InsertResultParams{
		LessonID:   r.LessonID,
		LessonName: r.LessonName,
		ExamType:   string(r.ExamType),
		Score:      r.Score,
		CreatedAt:  timezone.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ShouldSend fails open: when the alert log cannot be read the alert
// goes out.
func (s Store) ShouldSend(ctx context.Context, kind string) bool {
	ctx, span := tracer.Start(ctx, "ShouldSend")
	defer span.End()
	span.SetAttributes(attribute.String("kind", kind))

	lastSent, err := s.qry.GetAlertLastSent(ctx, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to read alert log", "kind", kind, "err", err)
		return true
	}

	return timezone.Now().Sub(time.Unix(lastSent, 0)) >= alertResendInterval
}

func (s Store) MarkSent(ctx context.Context, kind string) {
	ctx, span := tracer.Start(ctx, "MarkSent")
	defer span.End()
	span.SetAttributes(attribute.String("kind", kind))

	err := s.qry.MarkAlertSent(ctx, db.MarkAlertSentParams{
		Kind:     kind,
		LastSent: timezone.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to record alert send", "kind", kind, "err", err)
	}
}

var _ obs.SeenSet = Store{}
var _ obs.AlertGate = Store{}
