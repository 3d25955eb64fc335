package commands

import (
	"fmt"

	"beykent-notifier/lib/captcha"
	"beykent-notifier/lib/configutil"
	"beykent-notifier/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(captchaCmd)
}

var captchaCmd = &cobra.Command{
	Use:   "captcha <path/to/image.png>",
	Short: "Solves a captured captcha image and prints the answer, useful for tuning crop offsets.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.Ocr.Endpoint == "" {
			serviceutil.Fatal("incomplete config", fmt.Errorf("missing required key %q", "ocr.endpoint"))
		}

		solver := captcha.NewSolver(
			captcha.NewTrOCRClient(cfg.Ocr.Endpoint, cfg.Ocr.Token),
			captcha.DefaultLayout,
			cfg.ScreenshotDir,
		)
		answer, err := solver.Solve(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to solve captcha", err)
		}
		fmt.Println(answer)
	},
}
