package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"retrievalagent/database"
	"retrievalagent/geo"
	"retrievalagent/interests"
	"retrievalagent/websearch/providers"
)

func newCatalogCmd(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the offline places catalog",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database path (defaults to providers.catalog.path)")

	open := func() (*database.PlacesDB, error) {
		path := dbPath
		if path == "" {
			path = a.config.Providers.Catalog.Path
		}
		return database.NewPlacesDB(path)
	}

	cmd.AddCommand(
		newCatalogImportCmd(a, open),
		newCatalogExportCmd(open),
		newCatalogSeedCmd(a, open),
		newCatalogIndexCmd(a, open),
	)
	return cmd
}

type openCatalogFunc func() (*database.PlacesDB, error)

func newCatalogImportCmd(a *app, open openCatalogFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load places from CSV into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			places, err := database.ReadCatalogCSV(f)
			if err != nil {
				return err
			}

			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.UpsertPlaces(cmd.Context(), places)
			if err != nil {
				return err
			}
			a.logger.Info("catalog imported", "file", args[0], "places", n)
			return nil
		},
	}
}

func newCatalogExportCmd(open openCatalogFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Write the catalog as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			places, err := db.AllPlaces(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", args[0], err)
				}
				defer f.Close()
				out = f
			}
			return database.WriteCatalogCSV(out, places)
		},
	}
}

func newCatalogSeedCmd(a *app, open openCatalogFunc) *cobra.Command {
	var (
		seed       int64
		perCluster int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the catalog with reproducible synthetic places",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories := make(map[string][]string, len(interests.DefaultCategories))
			for kind, codes := range interests.DefaultCategories {
				categories[string(kind)] = codes
			}

			places, err := database.GenerateCatalog(geo.SingaporePartition(), database.SeedConfig{
				Seed:             seed,
				PlacesPerCluster: perCluster,
				Categories:       categories,
			})
			if err != nil {
				return err
			}

			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.UpsertPlaces(cmd.Context(), places)
			if err != nil {
				return err
			}
			a.logger.Info("catalog seeded", "places", n, "seed", seed)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().IntVar(&perCluster, "places-per-cluster", 30, "places generated per cluster")
	return cmd
}

func newCatalogIndexCmd(a *app, open openCatalogFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Push the catalog into Elasticsearch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.config.Providers.Elastic
			es, err := providers.NewElasticProvider(providers.ElasticConfig{
				URL:      cfg.URL,
				Index:    cfg.Index,
				PageSize: cfg.PageSize,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}

			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			places, err := db.AllPlaces(cmd.Context())
			if err != nil {
				return err
			}
			if err := es.EnsureIndex(cmd.Context()); err != nil {
				return err
			}
			n, err := es.IndexPlaces(cmd.Context(), places)
			if err != nil {
				return err
			}
			a.logger.Info("catalog indexed", "index", cfg.Index, "places", n)
			return nil
		},
	}
}
