package main

import (
	"context"
	"log/slog"
	"os"

	"outletqa/internal/app"
	"outletqa/internal/errors"
	"outletqa/internal/infrastructure"
)

func main() {
	os.Exit(run())
}

// run performs one analysis and returns the process exit code
func run() int {
	ctx := context.Background()

	application, err := app.NewApplication(ctx)
	if err != nil {
		infrastructure.GetLogger().Error("Failed to initialize application",
			slog.String("error", err.Error()),
			slog.String("error_type", string(errors.TypeOf(err))))
		return 1
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("Outlet report failed",
			slog.String("error", err.Error()),
			slog.String("error_type", string(errors.TypeOf(err))))
		return 1
	}
	return 0
}
