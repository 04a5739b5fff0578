// scripts/create_admin.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/user"
	"github.com/your-org/catalog-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/catalog-backend/internal/pkg/logger"
)

func main() {
	name := flag.String("name", "Administrator", "display name for a new account")
	email := flag.String("email", "", "account email (required)")
	password := flag.String("password", "", "password for a new account")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: go run scripts/create_admin.go -email admin@example.com [-name Name] [-password secret]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	users := user.NewService(db.GetDB(), cfg, nil, nil, nil, log)
	admin, created, err := users.EnsureAdmin(context.Background(), *name, *email, *password)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	if created {
		fmt.Printf("✅ Created admin %s (id %d)\n", admin.Email, admin.ID)
		return
	}
	fmt.Printf("✅ Promoted %s (id %d) to admin\n", admin.Email, admin.ID)
}
