package main

import (
	"context"

	"ipkwealth_backend/internal/leads/repository"
	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/db"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/phone"

	"github.com/google/uuid"
)

const batchSize = 500

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead phone backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)

	var (
		after                     uuid.UUID
		scanned, updated, skipped int
	)
	for {
		rows, err := repo.ListMissingNormalized(ctx, after, batchSize)
		if err != nil {
			log.Error("failed to list leads", "error", err)
			return
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			after = row.ID
			scanned++

			normalized := phone.Digits(row.Phone)
			if normalized == "" {
				// Rows without digits stay NULL and fall back to raw matching.
				skipped++
				continue
			}
			ok, err := repo.SetPhoneNormalized(ctx, row.ID, normalized)
			if err != nil {
				log.Error("failed to update lead", "leadId", row.ID, "error", err)
				continue
			}
			if ok {
				updated++
			}
		}

		log.Info("batch processed", "scanned", scanned, "updated", updated, "skipped", skipped)
	}

	log.Info("lead phone backfill complete", "scanned", scanned, "updated", updated, "skipped", skipped)
}
