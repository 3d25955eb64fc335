package commands

import (
	"fmt"
	"log/slog"
	"time"

	"beykent-notifier/lib/browser"
	"beykent-notifier/lib/captcha"
	"beykent-notifier/lib/configutil"
	"beykent-notifier/lib/configutil/sqlitecfg"
	"beykent-notifier/lib/scrapers/obs"
	"beykent-notifier/lib/serviceutil"
	"beykent-notifier/services/notify"
	"beykent-notifier/services/store"
	"beykent-notifier/services/store/db"

	"github.com/spf13/cobra"
)

type PortalConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	LoginUrl string `json:"login_url"`
	HomeUrl  string `json:"home_url"`
}

type NtfyConfig struct {
	Server string `json:"server"`
	Topic  string `json:"topic"`
}

type OcrConfig struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
}

type Config struct {
	Portal   PortalConfig     `json:"portal"`
	Ntfy     NtfyConfig       `json:"ntfy"`
	Ocr      OcrConfig        `json:"ocr"`
	Database sqlitecfg.Struct `json:"database"`

	Headless      bool   `json:"headless"`
	ScreenshotDir string `json:"screenshot_dir"`
}

func readRunConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	missing := ""
	switch {
	case cfg.Portal.Username == "":
		missing = "portal.username"
	case cfg.Portal.Password == "":
		missing = "portal.password"
	case cfg.Ntfy.Topic == "":
		missing = "ntfy.topic"
	case cfg.Ocr.Endpoint == "":
		missing = "ocr.endpoint"
	case cfg.Database.File == "":
		missing = "database.file"
	}
	if missing != "" {
		serviceutil.Fatal("incomplete config", fmt.Errorf("missing required key %q", missing))
	}
	if cfg.Ntfy.Server == "" {
		cfg.Ntfy.Server = notify.DefaultServer
	}
	// the login page defaults this too, but the captcha solver writes
	// its crops here and must never see an empty dir
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "data/screenshots"
	}
	return cfg
}

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Logs into OBS once, scrapes unseen exam results and pushes them over ntfy.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readRunConfig()

		database, err := cfg.Database.OpenDB(db.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		drv, err := browser.New(ctx, browser.Options{Headless: cfg.Headless})
		if err != nil {
			serviceutil.Fatal("failed to start browser", err)
		}
		defer drv.Close()

		seen := store.New(database)
		pusher := notify.NewClient(cfg.Ntfy.Server, cfg.Ntfy.Topic)
		solver := captcha.NewSolver(
			captcha.NewTrOCRClient(cfg.Ocr.Endpoint, cfg.Ocr.Token),
			captcha.DefaultLayout,
			cfg.ScreenshotDir,
		)

		login := obs.NewLoginPage(obs.LoginOptions{
			Driver:  drv,
			Solver:  solver,
			Alerter: pusher,
			Credentials: obs.Credentials{
				Username: cfg.Portal.Username,
				Password: cfg.Portal.Password,
			},
			AlertGate:     seen,
			LoginURL:      cfg.Portal.LoginUrl,
			HomeURL:       cfg.Portal.HomeUrl,
			ScreenshotDir: cfg.ScreenshotDir,
		})

		t1 := time.Now()

		outcome, err := login.Login(ctx)
		if err != nil {
			serviceutil.Fatal("failed to login to obs", err)
		}
		if outcome == obs.OutcomeBlocked {
			slog.Warn("login blocked by contact info alert, nothing to scrape")
			return
		}

		page := obs.NewResultsPage(drv, seen)
		err = page.NavigateToResults(ctx)
		if err != nil {
			serviceutil.Fatal("failed to open results page", err)
		}
		results, err := page.GetResults(ctx)
		if err != nil {
			serviceutil.Fatal("failed to scrape results", err)
		}

		slog.Info("scraped results", "new", len(results))
		pusher.NotifyResults(ctx, results)

		t2 := time.Now()
		slog.Info("run time", "seconds", t2.Sub(t1).Seconds())
	},
}
