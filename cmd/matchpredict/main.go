package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchpredict/internal/cfg"
	"matchpredict/internal/confidence"
	"matchpredict/internal/engine"
	"matchpredict/internal/ensemble"
	"matchpredict/internal/features"
	"matchpredict/internal/metrics"
	"matchpredict/internal/model"
	"matchpredict/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("matchpredict failed")
	}
}

func run() error {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	input := flag.String("input", "-", "match record JSON file, or - for stdin")
	pretty := flag.Bool("pretty", false, "indent the output JSON")
	flag.Parse()

	settings, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	m := metrics.New()
	sink := metrics.NewWrapper(m)
	if settings.MetricsPort != 0 {
		go serveMetrics(settings.MetricsPort)
	}

	registry, err := model.Load(settings.ModelDir, model.LoadOptions{
		TensorRuntimeLib:    settings.OnnxRuntimeLib,
		DisableTensorModels: settings.DisableTensor,
	})
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	defer registry.Close()
	sink.ModelsLoadedSet(len(registry.Models()))

	var history confidence.History
	var store *storage.Store
	if settings.DataPath != "" {
		store, err = storage.New(settings.DataPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()
		history = store
	}

	scorer := confidence.NewScorer(confidence.Weights{
		DataQuality:        settings.DataQualityW,
		ModelCertainty:     settings.ModelCertaintyW,
		HistoricalAccuracy: settings.HistAccuracyW,
		ContextualFactors:  settings.ContextFactorsW,
	}, history)
	weights := ensemble.Weights{
		model.KindTreeEnsemble: settings.TreeWeight,
		model.KindLinear:       settings.LinearWeight,
		model.KindTensorGraph:  settings.TensorWeight,
	}
	eng := engine.New(registry, weights, scorer, settings.ModelTimeout, sink)

	rec, err := readRecord(*input)
	if err != nil {
		return err
	}

	result, err := eng.Predict(context.Background(), rec)
	if err != nil {
		return fmt.Errorf("predict %s: %w", rec.MatchID, err)
	}

	if store != nil {
		err := store.StorePrediction(storage.StoredPrediction{
			MatchID:    rec.MatchID,
			Outcome:    parsedOutcome(result.PredictedOutcome),
			Probs:      model.Probs{result.HomeWinProb, result.DrawProb, result.AwayWinProb},
			Confidence: result.Confidence,
			At:         result.GeneratedAt,
		})
		if err != nil {
			log.Warn().Err(err).Str("matchId", rec.MatchID).Msg("prediction not persisted")
		}
	}

	return writeResult(os.Stdout, result, *pretty)
}

func readRecord(input string) (features.MatchRecord, error) {
	var raw []byte
	var err error
	if input == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(input)
	}
	if err != nil {
		return features.MatchRecord{}, fmt.Errorf("read match record: %w", err)
	}

	var rec features.MatchRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return features.MatchRecord{}, fmt.Errorf("parse match record: %w", err)
	}
	return rec, nil
}

func parsedOutcome(s string) model.Outcome {
	o, _ := model.ParseOutcome(s)
	return o
}

func writeResult(w io.Writer, result *engine.PredictionResult, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
