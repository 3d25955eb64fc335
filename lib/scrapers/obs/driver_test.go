package obs

import (
	"context"
	"errors"
	"time"
)

// scriptable in-memory Driver shared by the login and results tests
type fakeDriver struct {
	// fail the first N navigations to exercise the retry loop
	failNavigations int
	navigations     int

	location     string
	alertVisible bool
	tableHTML    string

	typed       map[string][]string
	clicks      []string
	screenshots []string

	frame            string
	defaultSwitches  int
	switchDefaultErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{typed: map[string][]string{}}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.navigations++
	if d.navigations <= d.failNavigations {
		return errors.New("timed out loading page")
	}
	return nil
}

func (d *fakeDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if selector == requiredAlert {
		if d.frame == "" {
			return errors.New("alert probe outside content frame")
		}
		if d.alertVisible {
			return nil
		}
		return errors.New("timed out waiting for element")
	}
	return nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	d.clicks = append(d.clicks, selector)
	return nil
}

func (d *fakeDriver) Type(ctx context.Context, selector, text string) error {
	d.typed[selector] = append(d.typed[selector], text)
	return nil
}

func (d *fakeDriver) Screenshot(ctx context.Context, selector, path string) error {
	d.screenshots = append(d.screenshots, path)
	return nil
}

func (d *fakeDriver) OuterHTML(ctx context.Context, selector string) (string, error) {
	if d.tableHTML == "" {
		return "", errors.New("no such element")
	}
	return d.tableHTML, nil
}

func (d *fakeDriver) Location(ctx context.Context) (string, error) {
	return d.location, nil
}

func (d *fakeDriver) SwitchFrame(ctx context.Context, selector string) error {
	d.frame = selector
	return nil
}

func (d *fakeDriver) SwitchDefault(ctx context.Context) error {
	d.frame = ""
	d.defaultSwitches++
	return d.switchDefaultErr
}

type fakeSolver struct {
	answer int
	err    error
}

func (s fakeSolver) Solve(ctx context.Context, imagePath string) (int, error) {
	return s.answer, s.err
}

type fakeAlerter struct {
	messages []string
}

func (a *fakeAlerter) SendAlert(ctx context.Context, message string) {
	a.messages = append(a.messages, message)
}

type fakeGate struct {
	allow  bool
	marked []string
}

func (g *fakeGate) ShouldSend(ctx context.Context, kind string) bool {
	return g.allow
}

func (g *fakeGate) MarkSent(ctx context.Context, kind string) {
	g.marked = append(g.marked, kind)
}

type mapSeenSet struct {
	seen      map[string]bool
	inserted  []Result
	existsErr error
	insertErr error
}

func newMapSeenSet() *mapSeenSet {
	return &mapSeenSet{seen: map[string]bool{}}
}

func seenKey(lessonID string, examType ExamType) string {
	return lessonID + "|" + string(examType)
}

func (m *mapSeenSet) Exists(ctx context.Context, lessonID string, examType ExamType) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.seen[seenKey(lessonID, examType)], nil
}

func (m *mapSeenSet) Insert(ctx context.Context, r Result) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.seen[seenKey(r.LessonID, r.ExamType)] = true
	m.inserted = append(m.inserted, r)
	return nil
}
