package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/playmatatu/minigames/internal/admin"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/database"
	"github.com/playmatatu/minigames/internal/levels"
	"github.com/playmatatu/minigames/internal/tangram"
)

func main() {
	packPath := flag.String("pack", "levels/shapes.yaml", "level pack to store in the database")
	skipAdmin := flag.Bool("skip-admin", false, "only seed levels")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if !*skipAdmin {
		seedAdmin(db)
	}

	store := levels.NewStore(db)
	seed := tangram.BuiltinLevels()
	if *packPath != "" {
		pack, err := levels.LoadPack(*packPath)
		if err != nil {
			log.Fatalf("Failed to load level pack: %v", err)
		}
		seed = append(seed, pack...)
	}
	for _, l := range seed {
		if err := store.Upsert(context.Background(), l); err != nil {
			log.Fatalf("Failed to store level %d: %v", l.ID, err)
		}
		log.Printf("[LEVELS] Stored level %d %q (%d pieces)", l.ID, l.Name, len(l.Pieces))
	}
}

func seedAdmin(db *sqlx.DB) {
	phone := os.Getenv("ADMIN_PHONE")
	if phone == "" {
		phone = "256700000000"
		log.Printf("Using default admin phone: %s", phone)
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Printf("WARNING: Using default admin token. Set ADMIN_TOKEN env var in production!")
	}

	roles := []string{"*"}
	if r := os.Getenv("ADMIN_ROLES"); r != "" {
		roles = strings.Split(r, ",")
	}
	allowedIPs := []string{} // empty = allow from any IP
	if ips := os.Getenv("ADMIN_ALLOWED_IPS"); ips != "" {
		allowedIPs = strings.Split(ips, ",")
	}

	if err := admin.CreateAdminAccount(db, phone, "Admin", adminToken, roles, allowedIPs); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("Admin account created/updated")
	log.Printf("  Phone: %s", phone)
	log.Printf("  Roles: %v", roles)
}
