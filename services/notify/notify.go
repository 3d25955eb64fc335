package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"beykent-notifier/lib/restyutil"
	"beykent-notifier/lib/scrapers/obs"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/notify")

const DefaultServer = "https://ntfy.sh"

// the run must never hang on one webhook
const requestTimeout = 5 * time.Second

const (
	resultTitle = "Beykent Universitesi Sinav Sonucunuz Aciklandi !"
	alertTitle  = "Beykent Universitesi iletisim bilgilerinizi guncelleyiniz"
)

var examTypeLabels = map[obs.ExamType]string{
	obs.ExamMidterm: "Vize",
	obs.ExamFinal:   "Final",
	obs.ExamMakeUp:  "Bütünleme",
}

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

// Client posts messages to a single configured ntfy topic. Delivery
// is fire-and-report: failures are logged with context and swallowed,
// a missed notification is lost, not queued.
type Client struct {
	http     *resty.Client
	topicURL string
}

func NewClient(server, topic string) Client {
	client := resty.New()
	client.SetTimeout(requestTimeout)
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return Client{
		http:     client,
		topicURL: fmt.Sprintf("%s/%s", strings.TrimSuffix(server, "/"), topic),
	}
}

// NotifyResults fans out one push per result. Calls run concurrently
// and independently: one failure neither cancels nor delays its
// siblings, and nothing escapes to the caller. Returns once every
// call has finished one way or the other.
func (c Client) NotifyResults(ctx context.Context, results []obs.Result) {
	ctx, span := tracer.Start(ctx, "NotifyResults")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(results)))

	if len(results) == 0 {
		slog.InfoContext(ctx, "no new results to notify")
		return
	}

	wg := sync.WaitGroup{}
	for _, result := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.sendResult(ctx, result)
		}()
	}
	wg.Wait()

	slog.InfoContext(ctx, "notification fan-out finished", "count", len(results))
}

func (c Client) sendResult(ctx context.Context, r obs.Result) {
	ctx, span := tracer.Start(ctx, "sendResult")
	defer span.End()
	span.SetAttributes(
		attribute.String("lesson", r.LessonName),
		attribute.String("exam_type", string(r.ExamType)),
	)

	message := fmt.Sprintf(
		"Sınav sonucunuz açıklandı!\n\nDers: %s\nSınav: %s\nNot: %v",
		r.LessonName, examTypeLabel(r.ExamType), r.Score,
	)

	err := c.post(ctx, message, resultTitle, "loudspeaker")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to send result notification",
			"lesson", r.LessonName, "exam_type", r.ExamType, "err", err)
		return
	}

	slog.InfoContext(ctx, "notification sent",
		"lesson", r.LessonName, "exam_type", r.ExamType, "score", r.Score)
}

// SendAlert delivers the one-shot out-of-band alert used for the
// contact info interstitial. Synchronous, failures swallowed.
func (c Client) SendAlert(ctx context.Context, message string) {
	ctx, span := tracer.Start(ctx, "SendAlert")
	defer span.End()

	err := c.post(ctx, message, alertTitle, "warning")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "failed to send alert notification", "err", err)
		return
	}
	slog.InfoContext(ctx, "alert notification sent")
}

func (c Client) post(ctx context.Context, message, title, tags string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Title", title).
		SetHeader("Tags", tags).
		SetHeader("Priority", "high").
		SetBody([]byte(message)).
		Post(c.topicURL)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("ntfy returned status %d", res.StatusCode())
	}
	return nil
}

func examTypeLabel(t obs.ExamType) string {
	label, ok := examTypeLabels[t]
	if !ok {
		return string(t)
	}
	return label
}

var _ obs.Alerter = Client{}
