package main

import (
	"context"
	"flag"
	"os"

	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/carebridge/carebridge/internal/server"
)

func main() {
	job := flag.String("job", "", "run a single scheduled job (e.g. accumulation_reports) and exit")
	flag.Parse()

	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	ctx := context.Background()
	if *job != "" {
		if err := srv.RunJob(ctx, *job); err != nil {
			logger.Error().Err(err).Str("job", *job).Msg("Job run failed")
			os.Exit(1)
		}
		return
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server exited with errors")
		os.Exit(1)
	}
	logger.Info().Msg("Server stopped")
}
