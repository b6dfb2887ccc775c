package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/store"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and edit the project artifact catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached artifacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		catalog, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = catalog.Close() }()
		return listCatalog(ctx, cmd.OutOrStdout(), catalog)
	},
}

var catalogRegisterCmd = &cobra.Command{
	Use:   "register FILE_NAME INPUTS_HASH PATH",
	Short: "Register a cached artifact",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		catalog, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = catalog.Close() }()
		return registerArtifact(ctx, catalog, args[0], args[1], args[2])
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd, catalogRegisterCmd)
	rootCmd.AddCommand(catalogCmd)
}

func listCatalog(ctx context.Context, w io.Writer, catalog *store.Catalog) error {
	entries, err := catalog.Entries(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tHASH\tPATH\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.FileName, e.InputsHash, e.CachePath, e.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func registerArtifact(ctx context.Context, catalog *store.Catalog, fileName, hash, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := catalog.Register(ctx, store.Entry{FileName: fileName, InputsHash: hash, CachePath: abs}); err != nil {
		return err
	}
	zap.L().Info("registered artifact",
		zap.String("file", fileName),
		zap.String("hash", hash),
		zap.String("path", abs),
	)
	return nil
}
