package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"coipond/internal/config"
	models "coipond/internal/domain/models/blueprint"
	"coipond/internal/repository/postgres"
	postgresBP "coipond/internal/repository/postgres/blueprint"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop the blueprint tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed blueprints")
	clearData := flag.Bool("clear-data", false, "Delete all blueprints and version histories (keep schema)")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// Destructive operations are never allowed against production tables
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: cannot run --drop-tables or --clear-data in the prod environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	log.Printf("Environment: %s, prefix: %s", cfg.Environment, cfg.TablePrefix)

	if *dropTables {
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		return
	}

	if err := clearAll(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if *clearData {
		log.Println("Data cleared")
		return
	}

	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	blueprints := postgresBP.NewBlueprintRepository(repoConfig)
	ledgers := postgresBP.NewLedgerRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	now := time.Now().UTC()
	for i, seed := range seedBlueprints() {
		bp := seed.blueprint(now.Add(-time.Duration(i) * 6 * time.Hour))

		err := txManager.ExecTx(ctx, func(txCtx context.Context) error {
			if err := blueprints.Create(txCtx, bp); err != nil {
				return err
			}
			if len(seed.history) == 0 {
				return nil
			}
			return ledgers.Save(txCtx, seed.ledger(bp))
		})
		if err != nil {
			log.Printf("Failed to create blueprint %q: %v", seed.name, err)
			continue
		}
		log.Printf("Created blueprint %d: %s (ID: %s, versions: %d)", i+1, seed.name, bp.ID, len(seed.history))
	}

	log.Println("Seeding complete")
}

func clearAll(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.BlueprintVersions, tables.Blueprints} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

type seedBlueprint struct {
	ownerID     string
	ownerName   string
	kind        models.Kind
	name        string
	description string
	text        string
	gameVersion string
	views       int64
	downloads   int64
	// Older contents, newest first
	history []models.VersionEntry
}

func (s seedBlueprint) blueprint(updated time.Time) *models.Blueprint {
	return &models.Blueprint{
		ID:            uuid.NewString(),
		OwnerID:       s.ownerID,
		OwnerName:     s.ownerName,
		Kind:          s.kind,
		Name:          s.name,
		Description:   s.description,
		BlueprintText: s.text,
		GameVersion:   s.gameVersion,
		Views:         s.views,
		Downloads:     s.downloads,
		CreatedAt:     updated.Add(-30 * 24 * time.Hour),
		UpdatedAt:     updated,
	}
}

func (s seedBlueprint) ledger(bp *models.Blueprint) *models.VersionLedger {
	versions := append([]models.VersionEntry{{
		BlueprintText: bp.BlueprintText,
		GameVersion:   bp.GameVersion,
		CreatedAt:     bp.UpdatedAt,
	}}, s.history...)
	return &models.VersionLedger{BlueprintID: bp.ID, OwnerID: bp.OwnerID, Versions: versions}
}

func seedBlueprints() []seedBlueprint {
	const (
		alice = "11111111-1111-1111-1111-111111111111"
		bob   = "22222222-2222-2222-2222-222222222222"
	)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	return []seedBlueprint{
		{
			ownerID: alice, ownerName: "Alice", kind: models.KindSingle,
			name:        "Compact iron smelter",
			description: "Four furnaces fed by a single belt.\n\n**Needs** coal on the left lane.",
			text:        "B64:seed-compact-iron-smelter-v2",
			gameVersion: "0.6.2",
			views:       412, downloads: 97,
			history: []models.VersionEntry{
				{BlueprintText: "B64:seed-compact-iron-smelter-v1", GameVersion: "0.6.0", CreatedAt: created},
			},
		},
		{
			ownerID: alice, ownerName: "Alice", kind: models.KindFolder,
			name:        "Starter base",
			description: "Everything for the first hour: power, smelting and a small research wing.",
			text:        "B64:seed-starter-base-folder",
			gameVersion: "0.5.10",
			views:       1280, downloads: 341,
		},
		{
			ownerID: bob, ownerName: "Bob", kind: models.KindSingle,
			name:        "Steam turbine block",
			description: "Tileable power block.",
			text:        "B64:seed-steam-turbine-block",
			gameVersion: "0.6.1",
			views:       88, downloads: 12,
		},
		{
			ownerID: bob, ownerName: "Bob", kind: models.KindSingle,
			name:        "Landfill ramp",
			description: "",
			text:        "B64:seed-landfill-ramp",
			gameVersion: "0.4.12",
			views:       3, downloads: 0,
		},
	}
}
