package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"scsim/adapters/httpd"
	"scsim/adapters/postgres"
	"scsim/adapters/refdata"
	"scsim/app"
	"scsim/internal/config"
	"scsim/internal/engine"
	"scsim/internal/errors"
	"scsim/internal/testkit"
	"scsim/ports"
)

// initDatabase connects the run registry and ensures its schema
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	// Run registry: Postgres when configured, in-memory otherwise
	var runs ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := initDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		runs = postgres.NewRunRepository(db)
		log.Println("Run registry: postgres")
	} else {
		runs = testkit.NewMemoryRunRepository()
		log.Println("No DATABASE_URL configured, using in-memory run registry")
	}

	// Reference source: files when configured, built-in fixture otherwise
	var reader ports.ReferenceReader
	if cfg.Paths.ReferenceFile != "" {
		cellsFile := cfg.Paths.CellsFile
		if cellsFile == "" {
			// single workbook carrying both genes and cells sheets
			cellsFile = cfg.Paths.ReferenceFile
		}
		reader = refdata.NewReader(cfg.Paths.ReferenceFile, cellsFile)
		log.Printf("Reference source: %s", cfg.Paths.ReferenceFile)
	} else {
		log.Println("No REFERENCE_FILE configured, using built-in synthetic reference")
		reader = &testkit.StaticReference{Ref: testkit.Reference(2000, 3, 2, 400)}
	}

	sims := app.NewSimulationService(reader, runs, engine.New(engine.WithWorkers(cfg.Sim.Workers)))
	server := httpd.NewServer(sims)

	log.Printf("Starting scsim API on port %s", cfg.Server.Port)
	log.Fatal(server.Start(":" + cfg.Server.Port))
}
