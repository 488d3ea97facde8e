// Command evaluate computes the aggregate quality report over stored
// personas, recommendations, and decision traces, and prints it as JSON,
// CSV, or a short narrative.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/andychuong/spendsense-sub000/internal/config"
	"github.com/andychuong/spendsense-sub000/internal/database"
	"github.com/andychuong/spendsense-sub000/internal/evaluate"
	"github.com/andychuong/spendsense-sub000/internal/logger"
)

func main() {
	format := flag.String("format", "narrative", "output format: json, csv, or narrative")
	since := flag.Duration("since", 0, "only consider traces newer than this age (0 = all)")
	flag.Parse()

	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	var cutoff time.Time
	if *since > 0 {
		cutoff = time.Now().UTC().Add(-*since)
	}

	corpus, err := loadCorpus(ctx, db, cutoff)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load evaluation corpus")
	}

	report := evaluate.Compute(corpus)

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatal().Err(err).Msg("failed to encode report")
		}
	case "csv":
		out, err := evaluate.RenderCSV(report)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to render report")
		}
		fmt.Print(out)
	case "narrative":
		fmt.Print(evaluate.RenderNarrative(report))
	default:
		log.Fatal().Str("format", *format).Msg("unknown output format")
	}
}

func loadCorpus(ctx context.Context, db *database.DB, since time.Time) (evaluate.Corpus, error) {
	userIDs, err := db.ListUserIDs(ctx)
	if err != nil {
		return evaluate.Corpus{}, err
	}
	assignments, err := db.ListActivePersonas(ctx)
	if err != nil {
		return evaluate.Corpus{}, err
	}
	recs, err := db.ListAllRecommendations(ctx)
	if err != nil {
		return evaluate.Corpus{}, err
	}
	traces, err := db.ListTracesSince(ctx, since)
	if err != nil {
		return evaluate.Corpus{}, err
	}
	return evaluate.Corpus{
		UserIDs:         userIDs,
		Assignments:     assignments,
		Recommendations: recs,
		Traces:          traces,
	}, nil
}
