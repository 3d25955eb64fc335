package obs

import (
	"beykent-notifier/lib/telemetry"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLoginPage(driver *fakeDriver, solver CaptchaSolver, alerter Alerter, gate AlertGate, t *testing.T) (*LoginPage, *int) {
	t.Helper()
	page := NewLoginPage(LoginOptions{
		Driver:        driver,
		Solver:        solver,
		Alerter:       alerter,
		AlertGate:     gate,
		Credentials:   Credentials{Username: "20001", Password: "hunter2"},
		ScreenshotDir: t.TempDir(),
		Backoff:       time.Millisecond,
	})

	sleeps := new(int)
	page.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps++
		return nil
	}
	return page, sleeps
}

func TestLoginSucceedsOnThirdAttempt(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/obs")
	defer cleanup()

	driver := newFakeDriver()
	driver.failNavigations = 2
	driver.location = DefaultHomeURL
	alerter := &fakeAlerter{}

	page, sleeps := newTestLoginPage(driver, fakeSolver{answer: 30}, alerter, nil, t)
	outcome, err := page.Login(context.Background())

	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome)
	require.Equal(t, 3, driver.navigations)
	// pauses happen between attempts only
	require.Equal(t, 2, *sleeps)
	require.Equal(t, []string{"20001"}, driver.typed[usernameInput])
	require.Equal(t, []string{"hunter2"}, driver.typed[passwordInput])
	require.Equal(t, []string{"30"}, driver.typed[captchaInput])
	require.Empty(t, alerter.messages)
}

func TestLoginFailsAfterMaxAttempts(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/obs")
	defer cleanup()

	driver := newFakeDriver()
	driver.failNavigations = 100

	page, sleeps := newTestLoginPage(driver, fakeSolver{answer: 30}, &fakeAlerter{}, nil, t)
	outcome, err := page.Login(context.Background())

	require.Error(t, err)
	require.Equal(t, OutcomeFailed, outcome)
	// never a 4th attempt, and no pause after the last one
	require.Equal(t, 3, driver.navigations)
	require.Equal(t, 2, *sleeps)
}

func TestLoginVerifyMismatchRetries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/obs")
	defer cleanup()

	driver := newFakeDriver()
	driver.location = "https://obs.beykent.edu.tr/oibs/std/login.aspx"

	page, _ := newTestLoginPage(driver, fakeSolver{answer: 12}, &fakeAlerter{}, nil, t)
	outcome, err := page.Login(context.Background())

	require.Error(t, err)
	require.Equal(t, OutcomeFailed, outcome)
	require.Equal(t, 3, driver.navigations)
}

func TestLoginUnresolvableCaptchaRetries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/obs")
	defer cleanup()

	driver := newFakeDriver()
	driver.location = DefaultHomeURL

	page, _ := newTestLoginPage(driver, fakeSolver{err: errors.New("captcha could not be resolved")}, &fakeAlerter{}, nil, t)
	outcome, err := page.Login(context.Background())

	require.Error(t, err)
	require.Equal(t, OutcomeFailed, outcome)
	require.Equal(t, 3, driver.navigations)
	// the captcha answer was never typed
	require.Empty(t, driver.typed[captchaInput])
}

func TestLoginBlockedOnContactInfoAlert(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/obs")
	defer cleanup()

	driver := newFakeDriver()
	driver.location = DefaultHomeURL
	driver.alertVisible = true
	alerter := &fakeAlerter{}
	gate := &fakeGate{allow: true}

	page, _ := newTestLoginPage(driver, fakeSolver{answer: 7}, alerter, gate, t)
	outcome, err := page.Login(context.Background())

	require.NoError(t, err)
	require.Equal(t, OutcomeBlocked, outcome)
	require.Len(t, alerter.messages, 1)
	require.Equal(t, []string{AlertKindContactInfo}, gate.marked)
	// the frame is restored even though the probe matched
	require.Equal(t, "", driver.frame)
	require.Equal(t, 1, driver.defaultSwitches)
}

func TestLoginBlockedAlertRateLimited(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/obs")
	defer cleanup()

	driver := newFakeDriver()
	driver.location = DefaultHomeURL
	driver.alertVisible = true
	alerter := &fakeAlerter{}
	gate := &fakeGate{allow: false}

	page, _ := newTestLoginPage(driver, fakeSolver{answer: 7}, alerter, gate, t)
	outcome, err := page.Login(context.Background())

	require.NoError(t, err)
	// still blocked, just without a fresh notification
	require.Equal(t, OutcomeBlocked, outcome)
	require.Empty(t, alerter.messages)
	require.Empty(t, gate.marked)
}
