package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/zonemap/internal/travelcost"
)

var originsCmd = &cobra.Command{
	Use:   "origins",
	Short: "List the origin zones of a travel cost table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		costsFile, _ := cmd.Flags().GetString("costs")
		mode, _ := cmd.Flags().GetString("mode")
		return runOrigins(cmd.Context(), cmd.OutOrStdout(), costsFile, mode)
	},
}

func init() {
	originsCmd.Flags().String("costs", "", "travel costs CSV file")
	originsCmd.Flags().String("mode", "", "travel cost mode in PostGIS")
	rootCmd.AddCommand(originsCmd)
}

func runOrigins(ctx context.Context, w io.Writer, costsFile, mode string) error {
	var origins []string
	switch {
	case costsFile != "" && mode != "":
		return eris.New("--costs and --mode are mutually exclusive")
	case costsFile != "":
		table, err := travelcost.LoadFile(costsFile)
		if err != nil {
			return err
		}
		origins = table.Origins()
	case mode != "":
		pg, err := openPostgres(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()
		origins, err = pg.Origins(ctx, mode)
		if err != nil {
			return err
		}
	default:
		return eris.New("one of --costs or --mode is required")
	}

	for _, o := range origins {
		fmt.Fprintln(w, o)
	}
	return nil
}
