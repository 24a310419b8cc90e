// seed loads development data into the PattaMap database.
//
// Usage:
//
//	go run ./cmd/seed <command> [flags]
//
// Commands: establishments, editor
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pattamap/server/internal/config"
	"github.com/pattamap/server/internal/data"
	"github.com/pattamap/server/internal/persist"
	"go.uber.org/zap"
)

func printUsage() {
	fmt.Println("Usage: seed <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  establishments  -file data/yaml/establishments.yaml   upsert establishments")
	fmt.Println("  editor          -name ning [-key secret] [-viewer]     create an editor API key")
	fmt.Println()
	fmt.Println("The database and zone list come from PATTAMAP_CONFIG (default config/server.toml).")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	file := fs.String("file", "data/yaml/establishments.yaml", "establishment seed file")
	name := fs.String("name", "", "editor name")
	key := fs.String("key", "", "editor secret (generated when empty)")
	viewer := fs.Bool("viewer", false, "create a read-only editor")
	_ = fs.Parse(os.Args[2:])

	commands := map[string]func(context.Context, *config.Config, *persist.DB) error{
		"establishments": func(ctx context.Context, cfg *config.Config, db *persist.DB) error {
			return seedEstablishments(ctx, cfg, db, *file)
		},
		"editor": func(ctx context.Context, _ *config.Config, db *persist.DB) error {
			return createEditor(ctx, db, *name, *key, !*viewer)
		},
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err := run(fn); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR [%s]: %v\n", cmd, err)
		os.Exit(1)
	}
}

func run(fn func(context.Context, *config.Config, *persist.DB) error) error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("PATTAMAP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if _, err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return fn(ctx, cfg, db)
}

func seedEstablishments(ctx context.Context, cfg *config.Config, db *persist.DB, path string) error {
	zones, err := data.LoadZones(cfg.Data.ZonesPath)
	if err != nil {
		return err
	}
	seeds, err := data.LoadEstablishmentSeeds(path, zones)
	if err != nil {
		return err
	}

	repo := persist.NewEstablishmentRepo(db)
	// Clear seeded positions first so re-seeding a rearranged file never trips the cell index.
	for _, s := range seeds {
		if err := repo.Upsert(ctx, persist.EstablishmentRow{ID: s.ID, Zone: s.Zone, Name: s.Name, Category: s.Type, Icon: s.Icon}); err != nil {
			return err
		}
	}
	placed := 0
	for _, s := range seeds {
		if s.GridRow == nil {
			continue
		}
		row := persist.EstablishmentRow{
			ID: s.ID, Zone: s.Zone, Name: s.Name, Category: s.Type, Icon: s.Icon,
			GridRow: s.GridRow, GridCol: s.GridCol,
		}
		if err := repo.Upsert(ctx, row); err != nil {
			return err
		}
		placed++
	}
	fmt.Printf("Seeded %d establishments (%d placed) from %s\n", len(seeds), placed, path)
	return nil
}

func createEditor(ctx context.Context, db *persist.DB, name, key string, canEdit bool) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.Contains(name, ".") {
		return fmt.Errorf("-name is required and must not contain '.'")
	}
	if key == "" {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		key = hex.EncodeToString(buf)
	}

	repo := persist.NewEditorRepo(db)
	existing, err := repo.Load(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("editor %q already exists", name)
	}
	if _, err := repo.Create(ctx, name, key, canEdit); err != nil {
		return err
	}
	fmt.Printf("Editor %s created (can_edit=%t)\n", name, canEdit)
	fmt.Printf("Token: %s.%s\n", name, key)
	return nil
}
