package obs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"beykent-notifier/lib/browser"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ResultsPage struct {
	driver browser.Driver
	seen   SeenSet
}

func NewResultsPage(driver browser.Driver, seen SeenSet) *ResultsPage {
	return &ResultsPage{
		driver: driver,
		seen:   seen,
	}
}

// clicks through the sidebar to the exam results view. must run on
// the default content, after a successful login.
func (p *ResultsPage) NavigateToResults(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "NavigateToResults")
	defer span.End()

	err := p.driver.Click(ctx, menuButton, browser.ActionTimeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open menu")
		return err
	}
	err = p.driver.Click(ctx, resultsMenuEntry, browser.ActionTimeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open results entry")
		return err
	}
	return nil
}

// GetResults reads the rendered results table, filters out everything
// the seen set already holds and records the remainder. The returned
// slice preserves table row order, and within a row, the order score
// spans appear in. Running twice against an unchanged table yields
// nothing the second time.
func (p *ResultsPage) GetResults(ctx context.Context) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "GetResults")
	defer span.End()

	err := p.driver.SwitchFrame(ctx, contentFrame)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to switch to content frame")
		return nil, err
	}
	defer func() {
		err := p.driver.SwitchDefault(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to restore default content", "err", err)
		}
	}()

	err = p.driver.WaitVisible(ctx, resultsTable, browser.ActionTimeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "results table never rendered")
		return nil, err
	}

	html, err := p.driver.OuterHTML(ctx, resultsTable)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read results table")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse results table")
		return nil, err
	}

	newResults := p.extract(ctx, doc)
	span.SetAttributes(attribute.Int("new_results", len(newResults)))
	return newResults, nil
}

// walks the table rows and accumulates every not-yet-seen result,
// persisting each as it is found. one malformed row never aborts the
// pass.
func (p *ResultsPage) extract(ctx context.Context, doc *goquery.Document) []Result {
	var newResults []Result

	rows := doc.Find("tr")
	slog.InfoContext(ctx, "processing results table", "rows", rows.Length()-1)

	rows.Each(func(rowIdx int, row *goquery.Selection) {
		// header row
		if rowIdx == 0 {
			return
		}

		cells := row.Find("td")
		if cells.Length() < 5 {
			slog.DebugContext(ctx, "skipping malformed row", "row", rowIdx, "cells", cells.Length())
			return
		}

		lessonID := strings.TrimSpace(cells.Eq(1).Find("span").First().Text())
		if lessonID == "" {
			slog.DebugContext(ctx, "skipping row without lesson id", "row", rowIdx)
			return
		}
		lessonName := strings.TrimSpace(cells.Eq(2).Text())

		cells.Eq(4).Find("span").Each(func(_ int, scoreSpan *goquery.Selection) {
			text := strings.TrimSpace(scoreSpan.Text())
			for _, m := range examMarkers {
				if !strings.Contains(text, m.Marker) {
					continue
				}

				score, err := parseScore(text, m.Marker)
				if err != nil {
					slog.WarnContext(ctx, "unparseable score",
						"lesson", lessonName, "exam_type", m.Type, "text", text)
					continue
				}

				result := Result{
					LessonID:   lessonID,
					LessonName: lessonName,
					ExamType:   m.Type,
					Score:      score,
				}
				if p.alreadySeen(ctx, result) {
					continue
				}

				err = p.seen.Insert(ctx, result)
				if err != nil {
					// not retried, the result is still worth
					// notifying about this run
					slog.ErrorContext(ctx, "failed to persist result",
						"lesson", lessonName, "exam_type", m.Type, "err", err)
				}

				slog.InfoContext(ctx, "new result found",
					"lesson", lessonName, "exam_type", m.Type, "score", score)
				newResults = append(newResults, result)
			}
		})
	})

	return newResults
}

// a failed existence check counts as seen, the suppressed result is
// picked up again on the next run.
func (p *ResultsPage) alreadySeen(ctx context.Context, r Result) bool {
	exists, err := p.seen.Exists(ctx, r.LessonID, r.ExamType)
	if err != nil {
		slog.WarnContext(ctx, "existence check failed, suppressing result",
			"lesson", r.LessonName, "exam_type", r.ExamType, "err", err)
		return true
	}
	return exists
}

func parseScore(text, marker string) (float64, error) {
	_, after, found := strings.Cut(text, marker)
	if !found {
		return 0, fmt.Errorf("marker %q not in %q", marker, text)
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return 0, fmt.Errorf("no score after marker %q in %q", marker, text)
	}
	return strconv.ParseFloat(fields[0], 64)
}
