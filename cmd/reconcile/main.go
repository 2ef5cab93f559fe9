// Command reconcile records the realized result for a previously predicted
// match, growing the accuracy history the confidence scorer reads.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchpredict/internal/cfg"
	"matchpredict/internal/model"
	"matchpredict/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("reconcile failed")
	}
}

func run() error {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	matchID := flag.String("match", "", "match ID of the stored prediction")
	result := flag.String("result", "", "realized result: HOME, DRAW or AWAY")
	flag.Parse()

	if *matchID == "" || *result == "" {
		flag.Usage()
		os.Exit(2)
	}

	actual, ok := model.ParseOutcome(*result)
	if !ok {
		return fmt.Errorf("invalid result %q, want HOME, DRAW or AWAY", *result)
	}

	settings, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if settings.DataPath == "" {
		return fmt.Errorf("DATA_PATH must be set to reconcile outcomes")
	}

	store, err := storage.New(settings.DataPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	if err := store.RecordOutcome(*matchID, actual); err != nil {
		return err
	}
	log.Info().Str("matchId", *matchID).Str("result", actual.String()).Msg("outcome recorded")
	return nil
}
