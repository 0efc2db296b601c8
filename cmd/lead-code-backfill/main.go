package main

import (
	"context"
	"fmt"
	"time"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/journal"
	"ipkwealth_backend/internal/leads/repository"
	"ipkwealth_backend/internal/sequence"
	"ipkwealth_backend/platform/config"
	"ipkwealth_backend/platform/db"
	"ipkwealth_backend/platform/logger"
)

const batchSize = 200

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead code backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	allocator := sequence.New(sequence.NewPostgresStore(pool), log,
		sequence.WithBackoff(cfg.GetSequenceMaxAttempts(), cfg.GetSequenceBaseDelay(), cfg.GetSequenceMaxDelay()))
	trail := journal.New(repo, nil, nil, nil, log)
	loc := cfg.GetLeadCodeLocation()

	total := 0
	for {
		leads, err := repo.ListAssignedWithoutCode(ctx, batchSize)
		if err != nil {
			log.Error("failed to list leads", "error", err)
			return
		}
		if len(leads) == 0 {
			break
		}

		coded, err := backfillBatch(ctx, repo, allocator, trail, loc, leads, log)
		total += coded
		if err != nil {
			log.Error("batch failed", "error", err, "coded", total)
			return
		}
		if coded == 0 {
			log.Warn("no progress in batch, stopping", "remaining", len(leads))
			break
		}
		log.Info("batch processed", "coded", total)
	}

	log.Info("lead code backfill complete", "coded", total)
}

// backfillBatch groups leads by the month they were created in and reserves
// one contiguous block per month counter.
func backfillBatch(ctx context.Context, repo *repository.Repository, allocator *sequence.Allocator, trail *journal.Journal, loc *time.Location, leads []domain.Lead, log *logger.Logger) (int, error) {
	type group struct {
		at    time.Time
		leads []domain.Lead
	}
	groups := make(map[string]*group)
	order := make([]string, 0)
	for _, lead := range leads {
		at := lead.CreatedAt.In(loc)
		key := domain.LeadCodeCounterKey(at)
		g, ok := groups[key]
		if !ok {
			g = &group{at: at}
			groups[key] = g
			order = append(order, key)
		}
		g.leads = append(g.leads, lead)
	}

	coded := 0
	for _, key := range order {
		g := groups[key]
		block, err := allocator.ReserveRange(ctx, key, int64(len(g.leads)))
		if err != nil {
			return coded, fmt.Errorf("reserve %s: %w", key, err)
		}
		for i, seq := range block.Values() {
			lead := g.leads[i]
			code := domain.FormatLeadCode(g.at, seq)
			before, after, err := repo.PatchLead(ctx, lead.ID, domain.LeadPatch{LeadCode: &code}, time.Now())
			if err != nil {
				log.Error("failed to set lead code", "leadId", lead.ID, "error", err)
				continue
			}
			if after.LeadCode == nil || *after.LeadCode != code {
				// Someone coded the lead concurrently; the reserved number is skipped.
				continue
			}
			if _, err := trail.Record(ctx, journal.Entry{
				LeadID: after.ID,
				Type:   domain.EventAssignment,
				Text:   fmt.Sprintf("Lead code %s backfilled", code),
				Tags:   []string{domain.TagAssignment},
				Prev:   domain.AssignmentOf(before),
				Next:   domain.AssignmentOf(after),
				Meta:   map[string]any{"leadCode": code, "backfill": true},
			}); err != nil {
				return coded, err
			}
			coded++
		}
	}
	return coded, nil
}
