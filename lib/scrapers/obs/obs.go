package obs

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/scrapers/obs")

type ExamType string

const (
	ExamMidterm ExamType = "midterm"
	ExamFinal   ExamType = "final"
	ExamMakeUp  ExamType = "make-up"
)

// one (lesson, exam type, score) fact read off the results table
type Result struct {
	LessonID   string
	LessonName string
	ExamType   ExamType
	Score      float64
}

// SeenSet decides whether a result was already recorded on a previous
// run, and records new ones. (lesson id, exam type) is the identity;
// a persisted result never changes.
type SeenSet interface {
	Exists(ctx context.Context, lessonID string, examType ExamType) (bool, error)
	Insert(ctx context.Context, r Result) error
}

// Alerter delivers the out-of-band "portal wants something from the
// user" notification. Delivery failures stay inside the implementation.
type Alerter interface {
	SendAlert(ctx context.Context, message string)
}

// AlertGate rate-limits repeated alerts of the same kind across runs.
// Implementations handle their own errors and fail open: when in
// doubt the alert goes out.
type AlertGate interface {
	ShouldSend(ctx context.Context, kind string) bool
	MarkSent(ctx context.Context, kind string)
}

const AlertKindContactInfo = "contact_info_update"
