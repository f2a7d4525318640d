package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/club"
	"github.com/shampsdev/gopadel-sub001/internal/database"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
	"github.com/shampsdev/gopadel-sub001/internal/store"
	"github.com/shopspring/decimal"
)

const (
	numMembers = 40
	numEvents  = 12
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":           "gopadel.db",
		"MIGRATIONS_DIR":    "./migrations",
		"TURSO_PRIMARY_URL": "",
		"TURSO_AUTH_TOKEN":  "",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()
	ctx := context.Background()

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"], cfg["MIGRATIONS_DIR"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()

	members := club.New(db)
	participation := store.New(db)
	events := catalog.New(participation)
	// Nothing consumes lifecycle messages while seeding.
	registrations := registration.New(participation, pubsub.NewLocal(), metrics.NewMock())

	seeded := make([]club.Member, 0, numMembers)
	for i := range numMembers {
		seeded = append(seeded, club.Member{
			ID:        fmt.Sprintf("seed-player-%02d", i+1),
			Name:      fmt.Sprintf("Seeder Player %02d", i+1),
			Rank:      float64(rand.Intn(60)) / 10,
			CreatedAt: time.Now(),
		})
	}
	if err := members.UpsertMembers(ctx, seeded); err != nil {
		log.Fatalf("Failed to insert members: %s", err)
	}
	log.Info("Ensured seed members exist.", "count", len(seeded))

	types := []lifecycle.EventType{lifecycle.EventTypeTournament, lifecycle.EventTypeGame, lifecycle.EventTypeTraining}
	startTime := time.Now()
	var registered int
	for i := range numEvents {
		organizer := seeded[rand.Intn(len(seeded))]
		lo := float64(rand.Intn(3))
		hi := lo + 3
		price := decimal.Zero
		if i%2 == 0 {
			price = decimal.NewFromInt(int64(500 + 250*rand.Intn(4)))
		}
		start := time.Now().Add(time.Duration(24+rand.Intn(24*30)) * time.Hour).Truncate(time.Hour)
		e, err := events.Create(ctx, lifecycle.Actor{UserID: organizer.ID}, catalog.CreateInput{
			Name:      fmt.Sprintf("Seeded %s #%d", types[i%len(types)], i+1),
			Type:      types[i%len(types)],
			RankMin:   &lo,
			RankMax:   &hi,
			MaxUsers:  4 * (1 + rand.Intn(3)),
			Price:     price,
			StartTime: start,
			EndTime:   start.Add(90 * time.Minute),
			ClubID:    "seed-club",
		})
		if err != nil {
			log.Fatalf("Failed to create event: %s", err)
		}

		for _, m := range seeded {
			if m.ID == organizer.ID || rand.Intn(3) != 0 {
				continue
			}
			_, err := registrations.Register(ctx, lifecycle.Actor{UserID: m.ID}, e.ID)
			switch {
			case err == nil:
				registered++
			case errors.Is(err, lifecycle.ErrRankNotAllowed), errors.Is(err, lifecycle.ErrEventFull):
			default:
				log.Fatalf("Failed to register %s: %s", m.ID, err)
			}
		}
	}

	duration := time.Since(startTime)
	log.Info("Successfully seeded events.", "events", numEvents, "registrations", registered, "duration", duration)
}
