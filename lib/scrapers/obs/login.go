package obs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"beykent-notifier/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Outcome is the terminal state of one login call. Blocked is not an
// error: the portal demands a contact info update before results can
// be trusted, so the caller must stop instead of scraping.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSuccess
	OutcomeBlocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "failed"
	}
}

// CaptchaSolver converts a captured captcha image into the number the
// portal expects in its answer field.
type CaptchaSolver interface {
	Solve(ctx context.Context, imagePath string) (int, error)
}

type Credentials struct {
	Username string
	Password string
}

type LoginOptions struct {
	Driver      browser.Driver
	Solver      CaptchaSolver
	Alerter     Alerter
	Credentials Credentials

	// optional alert rate limiting across runs
	AlertGate AlertGate

	// default DefaultLoginURL / DefaultHomeURL
	LoginURL string
	HomeURL  string

	// where the captured captcha image lands, default "data/screenshots"
	ScreenshotDir string

	// default 3 attempts with a flat 3s pause between them
	MaxAttempts int
	Backoff     time.Duration
}

type LoginPage struct {
	driver  browser.Driver
	solver  CaptchaSolver
	alerter Alerter
	gate    AlertGate
	creds   Credentials

	loginURL      string
	homeURL       string
	screenshotDir string
	maxAttempts   int
	backoff       time.Duration

	// swapped out in tests to observe the retry pacing
	sleep func(ctx context.Context, d time.Duration) error
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const (
	credentialWaitTimeout = 3 * time.Second
	submitWaitTimeout     = 3 * time.Second
	alertProbeTimeout     = 2 * time.Second
)

const contactInfoAlertMessage = "Lütfen iletişim bilgilerinizi güncelleyiniz. " +
	"Güncellemediğiniz takdirde ileti sistemi çalışmayacaktır."

func NewLoginPage(opts LoginOptions) *LoginPage {
	if opts.LoginURL == "" {
		opts.LoginURL = DefaultLoginURL
	}
	if opts.HomeURL == "" {
		opts.HomeURL = DefaultHomeURL
	}
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = "data/screenshots"
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = 3 * time.Second
	}

	return &LoginPage{
		driver:        opts.Driver,
		solver:        opts.Solver,
		alerter:       opts.Alerter,
		gate:          opts.AlertGate,
		creds:         opts.Credentials,
		loginURL:      opts.LoginURL,
		homeURL:       opts.HomeURL,
		screenshotDir: opts.ScreenshotDir,
		maxAttempts:   opts.MaxAttempts,
		backoff:       opts.Backoff,
		sleep:         sleepContext,
	}
}

type loginStep struct {
	name string
	fn   func(ctx context.Context) error
}

// Login runs the full credential + captcha pipeline with bounded
// retries. A step failure aborts the attempt and restarts from
// navigation after a flat backoff.
func (p *LoginPage) Login(ctx context.Context) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	steps := []loginStep{
		{"navigate", p.navigate},
		{"enter_username", p.enterUsername},
		{"enter_password", p.enterPassword},
		{"capture_captcha", p.captureCaptcha},
		{"resolve_captcha", p.resolveCaptcha},
		{"submit", p.submit},
		{"verify", p.verify},
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		slog.InfoContext(ctx, "login attempt", "attempt", attempt, "max", p.maxAttempts)

		err := p.runAttempt(ctx, attempt, steps)
		if err == nil {
			if p.checkAlert(ctx) {
				span.SetAttributes(attribute.String("outcome", OutcomeBlocked.String()))
				return OutcomeBlocked, nil
			}
			slog.InfoContext(ctx, "login successful", "attempts", attempt)
			span.SetAttributes(attribute.String("outcome", OutcomeSuccess.String()))
			return OutcomeSuccess, nil
		}

		slog.WarnContext(ctx, "login attempt failed", "attempt", attempt, "err", err)
		if attempt == p.maxAttempts {
			break
		}

		err = p.sleep(ctx, p.backoff)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return OutcomeFailed, err
		}
	}

	err := fmt.Errorf("login failed after %d attempts", p.maxAttempts)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("outcome", OutcomeFailed.String()))
	return OutcomeFailed, err
}

func (p *LoginPage) runAttempt(ctx context.Context, attempt int, steps []loginStep) error {
	ctx, span := tracer.Start(ctx, "loginAttempt")
	defer span.End()
	span.SetAttributes(attribute.Int("attempt", attempt))

	for _, step := range steps {
		err := p.runStep(ctx, step)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

func (p *LoginPage) runStep(ctx context.Context, step loginStep) error {
	ctx, span := tracer.Start(ctx, step.name)
	defer span.End()

	err := step.fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("step %s: %w", step.name, err)
	}
	return nil
}

func (p *LoginPage) navigate(ctx context.Context) error {
	err := p.driver.Navigate(ctx, p.loginURL)
	if err != nil {
		return err
	}
	return p.driver.WaitVisible(ctx, usernameInput, credentialWaitTimeout)
}

func (p *LoginPage) enterUsername(ctx context.Context) error {
	return p.driver.Type(ctx, usernameInput, p.creds.Username)
}

func (p *LoginPage) enterPassword(ctx context.Context) error {
	return p.driver.Type(ctx, passwordInput, p.creds.Password)
}

func (p *LoginPage) captchaPath() string {
	return filepath.Join(p.screenshotDir, "captcha.png")
}

func (p *LoginPage) captureCaptcha(ctx context.Context) error {
	return p.driver.Screenshot(ctx, captchaImage, p.captchaPath())
}

func (p *LoginPage) resolveCaptcha(ctx context.Context) error {
	answer, err := p.solver.Solve(ctx, p.captchaPath())
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "captcha solved", "answer", answer)
	return p.driver.Type(ctx, captchaInput, strconv.Itoa(answer))
}

func (p *LoginPage) submit(ctx context.Context) error {
	return p.driver.Click(ctx, loginButton, submitWaitTimeout)
}

func (p *LoginPage) verify(ctx context.Context) error {
	loc, err := p.driver.Location(ctx)
	if err != nil {
		return err
	}
	if loc != p.homeURL {
		return fmt.Errorf("unexpected location after login: %s", loc)
	}
	return nil
}

// probes for the mandatory "update your contact info" interstitial
// inside the content frame. absence is the expected case and is not
// an error. returns whether the portal is blocked on the user.
func (p *LoginPage) checkAlert(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "checkAlert")
	defer span.End()

	err := p.driver.SwitchFrame(ctx, contentFrame)
	if err != nil {
		slog.WarnContext(ctx, "could not probe contact info alert", "err", err)
		return false
	}
	defer func() {
		err := p.driver.SwitchDefault(ctx)
		if err != nil {
			slog.WarnContext(ctx, "failed to restore default content", "err", err)
		}
	}()

	err = p.driver.WaitVisible(ctx, requiredAlert, alertProbeTimeout)
	if err != nil {
		slog.DebugContext(ctx, "no contact info alert found")
		return false
	}

	slog.InfoContext(ctx, "contact info update alert detected")
	span.SetAttributes(attribute.Bool("blocked", true))

	if p.gate != nil && !p.gate.ShouldSend(ctx, AlertKindContactInfo) {
		slog.InfoContext(ctx, "contact info alert sent recently, skipping notification")
		return true
	}
	p.alerter.SendAlert(ctx, contactInfoAlertMessage)
	if p.gate != nil {
		p.gate.MarkSent(ctx, AlertKindContactInfo)
	}
	return true
}
