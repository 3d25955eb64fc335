package commands

import (
	"context"
	"fmt"
	"os"

	"beykent-notifier/lib/captcha"
	"beykent-notifier/lib/restyutil"
	"beykent-notifier/lib/telemetry"
	"beykent-notifier/services/notify"

	"github.com/spf13/cobra"
)

var (
	verbose   *bool
	debugHttp *bool
)

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
	debugHttp = rootCmd.PersistentFlags().Bool("debug-http", false, "Dump outgoing http requests and responses to .dev/resty/.")
}

var rootCmd = &cobra.Command{
	Use:   "beykent-notifier",
	Short: "beykent-notifier watches the Beykent OBS portal and pushes new exam results over ntfy.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		if *debugHttp {
			captcha.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/ocr"))
			notify.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/ntfy"))
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
