package main

import (
	"context"

	"beykent-notifier/cmd/beykent-notifier/commands"
	"beykent-notifier/lib/serviceutil"
	"beykent-notifier/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "beykent-notifier")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
