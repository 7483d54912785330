package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/config"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/routes"
	"Gin_postgres_redis_book_catalog/search"
)

func main() {
	config.LoadEnv()

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Book catalog API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "probe",
			Short: "Print the search capability of the configured database",
			RunE:  probe,
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	application := app.MustNew()
	defer application.Close()

	routes.RegisterRoutes(application.Router, application)
	return application.Run()
}

// probe 只连库探测，不迁移
func probe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	fmt.Fprintf(cmd.OutOrStdout(), "engine=%s capability=%s\n", gdb.Dialector.Name(), search.Probe(ctx, gdb))
	return nil
}
