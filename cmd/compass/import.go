package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teleportme/compass/pkg/compass"
	"github.com/teleportme/compass/pkg/compass/config"
	"github.com/teleportme/compass/pkg/compass/store/sqlite"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a city catalog into the database",
		Long: `Load cities, category scores and vibe tags from a YAML catalog.

Existing cities are updated in place. The preview snapshot is rebuilt
after the import.

Examples:
  compass import --catalog cities.yaml
  compass import --catalog cities.yaml --db /tmp/compass.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			comp, err := (&config.Loader{ConfigPath: opts.configPath, CatalogPath: catalogPath}).Load()
			if err != nil {
				return err
			}
			if opts.dbPath != "" {
				comp.Config.DBPath = opts.dbPath
			}

			db, err := sqlite.OpenSQLite(ctx, comp.Config.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			n, err := comp.Catalog.Seed(ctx, db)
			db.Close()
			if err != nil {
				return fmt.Errorf("seed catalog after %d cities: %w", n, err)
			}

			return withEngine(ctx, opts, cmd.ErrOrStderr(), func(engine *compass.Engine) error {
				loaded, err := engine.Refresh(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cities (%d in pool)\n", n, loaded)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "City catalog file (YAML, required)")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}
