package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/VersatileFusion/sangshekkan/config"
	"github.com/VersatileFusion/sangshekkan/database"
	"github.com/VersatileFusion/sangshekkan/database/seeders"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run tools/migrate.go migrate     - Create tables and indexes")
		fmt.Println("  go run tools/migrate.go seed-admin  - Create the ADMIN_PHONE account if missing")
		return
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	command := os.Args[1]

	switch command {
	case "migrate":
		fmt.Println("🚀 Running database migrations...")
		// opening a store migrates the schema (GORM) or ensures indexes (MongoDB)
		store, err := database.Open(ctx, cfg)
		if err != nil {
			fmt.Printf("❌ Migration failed: %v\n", err)
			os.Exit(1)
		}
		_ = store.Close(ctx)
		fmt.Println("✅ Migration completed successfully!")

	case "seed-admin":
		store, err := database.Open(ctx, cfg)
		if err != nil {
			fmt.Printf("❌ Failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close(ctx)

		created, err := seeders.SeedAdmin(ctx, store.Users(), seeders.AdminSeed{
			Phone:    cfg.AdminPhone,
			Name:     cfg.AdminName,
			Password: cfg.AdminPassword,
		}, time.Now().UTC())
		if err != nil {
			fmt.Printf("❌ Admin seeding failed: %v\n", err)
			os.Exit(1)
		}
		if created {
			fmt.Println("✅ Admin account created")
		} else {
			fmt.Println("ℹ️ Nothing to seed")
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Available commands: migrate, seed-admin")
	}
}
