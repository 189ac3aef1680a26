package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/andresuchdata/orderplan/internal/repository/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

// initDB opens the repository pool used by the data commands.
func initDB(c *cli.Context) error {
	db, err := sqlx.Connect("postgres", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.Context = context.WithValue(c.Context, dbKey{}, postgres.Wrap(db))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*postgres.DB, error) {
	db, ok := c.Context.Value(dbKey{}).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database is not initialized")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Prepare the order planning database and load reference data",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply the database schema",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runMigrate,
			},
			{
				Name:  "stores",
				Usage: "Create stores from a CSV file (name;aliases separated by |)",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "file", Usage: "Stores CSV file", Value: "./data/seeds/stores.csv"},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedStores,
			},
			{
				Name:  "limits",
				Usage: "Import bulk limit lines (product :: limit) for a store",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "store", Usage: "Store name", Required: true},
					&cli.StringFlag{Name: "file", Usage: "Text file with one limit per line", Required: true},
					&cli.BoolFlag{Name: "apply-to-all", Usage: "Also add the limits to every other store"},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedLimits,
			},
			{
				Name:  "mappings",
				Usage: "Import product mappings from a CSV file (main product;synonyms separated by |)",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "file", Usage: "Mappings CSV file", Value: "./data/seeds/product_mappings.csv"},
					&cli.StringFlag{Name: "policy", Usage: "Synonym conflict policy (last_wins or reject)", Value: "last_wins"},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedMappings,
			},
			{
				Name:  "global-stock",
				Usage: "Upload a global stock workbook",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "file", Usage: "Global stock workbook (.xlsx or .csv)", Required: true},
					&cli.StringFlag{Name: "stock-date", Usage: "Stock date (YYYY-MM-DD), defaults to now"},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedGlobalStock,
			},
			newArchiveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runMigrate applies the embedded schema through the pgx driver.
func runMigrate(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(c.Context, postgres.Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Println("Schema applied successfully!")
	return nil
}
