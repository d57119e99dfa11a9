// Package main provides a tool to load the catalog seed into the local
// database and optionally stock a demo shelf.
//
// This writes the same SQLite file the server uses in local mode, so the
// server can be started against a populated catalog.
//
// Usage:
//
//	DATA_PATH=~/Bottleservice go run ./cmd/seed --seed catalog.yaml
//	DATA_PATH=~/Bottleservice go run ./cmd/seed --seed catalog.yaml --demo-user bar@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	"github.com/bottleservice/bottleservice-server/internal/id"
	"github.com/bottleservice/bottleservice-server/internal/identity"
	"github.com/bottleservice/bottleservice-server/internal/seed"
	"github.com/bottleservice/bottleservice-server/internal/store/sqlite"
)

var (
	seedPath = flag.String("seed", "", "YAML catalog seed to load")
	demoUser = flag.String("demo-user", "", "Email of a local user to stock with a demo shelf")
	demoSize = flag.Int("demo-size", 8, "Number of bottles on the demo shelf")
)

var demoVolumes = []int{50, 375, 700, 750}

func main() {
	flag.Parse()

	if *seedPath == "" {
		log.Fatal("--seed is required")
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Bottleservice")
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data path: %v", err)
	}

	dbPath := filepath.Join(dataPath, "bottleservice.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	bottles, err := seed.Load(*seedPath)
	if err != nil {
		log.Fatalf("Failed to load seed: %v", err)
	}
	if err := s.ReplaceCatalog(ctx, bottles); err != nil {
		log.Fatalf("Failed to replace catalog: %v", err)
	}
	fmt.Printf("Loaded %d catalog bottles\n", len(bottles))

	if *demoUser != "" {
		stockDemoShelf(ctx, s, bottles)
	}

	fmt.Println("\nDone!")
}

// stockDemoShelf puts random catalog bottles on the demo user's shelf.
func stockDemoShelf(ctx context.Context, s *sqlite.Store, bottles []domain.Bottle) {
	user, err := identity.Dev{}.Verify(ctx, *demoUser)
	if err != nil {
		log.Fatalf("Invalid demo user: %v", err)
	}
	if len(bottles) == 0 {
		log.Fatal("The catalog is empty, nothing to put on a shelf.")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	n := min(*demoSize, len(bottles))
	now := time.Now().UTC()

	rows := make([]domain.ShelfBottle, 0, n)
	for i, idx := range rng.Perm(len(bottles))[:n] {
		b := bottles[idx]
		rows = append(rows, domain.ShelfBottle{
			ID:              id.Row(),
			UserID:          user.ID,
			BottleID:        b.ID,
			CurrentVolumeML: demoVolumes[rng.Intn(len(demoVolumes))],
			Cost:            decimal.New(int64(1500+rng.Intn(6000)), -2),
			Quantity:        1 + rng.Intn(2),
			AddedAt:         now.Add(-time.Duration(i) * time.Hour),
		})
	}

	if err := s.InsertShelf(ctx, rows); err != nil {
		log.Fatalf("Failed to stock shelf: %v", err)
	}
	fmt.Printf("Stocked %d bottles for %s (%s)\n", len(rows), user.Email, user.ID)
}
