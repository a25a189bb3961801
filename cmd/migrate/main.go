package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tullo/relay/config"
	"github.com/tullo/relay/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/migrate/main.go [up|down|status]")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "up":
		log.Println("Running migrations...")
		if err := database.RunMigrations(db.DB); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")

	case "status":
		showMigrationStatus(db)

	case "down":
		version, err := database.RollbackLast(db.DB)
		if err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		if version == 0 {
			log.Println("Nothing to roll back")
			return
		}
		log.Printf("Rolled back migration %d", version)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Available commands: up, down, status")
		os.Exit(1)
	}
}

func showMigrationStatus(db *database.DB) {
	applied, err := database.Applied(db.DB)
	if err != nil {
		log.Printf("No migrations found or table doesn't exist: %v", err)
		return
	}

	fmt.Println("\nApplied Migrations:")
	fmt.Println("-------------------")
	for _, m := range applied {
		fmt.Printf("Version %d - Applied at: %s\n", m.Version, m.AppliedAt)
	}
}
