package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/clinic-scheduler/internal/database"
)

func main() {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := database.Connect(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	// Check for force command: /bin/migrate force <version>
	if len(os.Args) >= 3 && os.Args[1] == "force" {
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("invalid version: %v", err)
		}
		if err := database.ForceVersion(db, version); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("forced version to %d\n", version)
		return
	}

	applied, err := database.MigrateUp(db)
	if err != nil {
		log.Fatal(err)
	}
	if !applied {
		fmt.Println("no migrations to apply")
		return
	}
	fmt.Println("migrations complete")
}
