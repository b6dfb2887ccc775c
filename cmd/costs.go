package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/travelcost"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Manage travel costs in PostGIS",
}

var costsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the travel costs of a mode with a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mode, _ := cmd.Flags().GetString("mode")
		if mode == "" {
			return eris.New("--mode is required")
		}

		table, err := travelcost.LoadFile(args[0])
		if err != nil {
			return err
		}

		pg, err := openPostgres(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()

		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		n, err := pg.ImportTravelCosts(ctx, mode, table.Records)
		if err != nil {
			return err
		}

		zap.L().Info("imported travel costs",
			zap.String("mode", mode),
			zap.String("file", args[0]),
			zap.Int64("rows", n),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows for mode %s\n", n, mode)
		return nil
	},
}

func init() {
	costsImportCmd.Flags().String("mode", "", "travel cost mode, e.g. car or walk")
	costsCmd.AddCommand(costsImportCmd)
	rootCmd.AddCommand(costsCmd)
}
