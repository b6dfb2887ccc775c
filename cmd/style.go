package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/travelcost"
	"github.com/sells-group/zonemap/internal/zones"
)

type styleFlags struct {
	zonesFile    string
	zonesVersion string
	costsFile    string
	mode         string
	origin       string
	out          string
	legend       string
	legendFormat string
}

var styleOpts styleFlags

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Style transport zones by travel time from an origin",
	Long: `Reads transport zones and, optionally, the travel costs from one origin zone,
then writes the zones as GeoJSON with a "style" property on every feature.

Zones and costs come from files (--zones, --costs) or from PostGIS
(--zones-version, --mode). Without costs the zones are written unstyled.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runStyle(ctx, cmd.OutOrStdout(), styleOpts)
	},
}

func init() {
	f := styleCmd.Flags()
	f.StringVar(&styleOpts.zonesFile, "zones", "", "transport zones file (.geojson, .json or .shp)")
	f.StringVar(&styleOpts.zonesVersion, "zones-version", "", "transport zones version in PostGIS")
	f.StringVar(&styleOpts.costsFile, "costs", "", "travel costs CSV file")
	f.StringVar(&styleOpts.mode, "mode", "", "travel cost mode in PostGIS")
	f.StringVar(&styleOpts.origin, "origin", "", "origin transport zone id")
	f.StringVarP(&styleOpts.out, "out", "o", "-", "output GeoJSON file, - for stdout")
	f.StringVar(&styleOpts.legend, "legend", "", "write the legend to this file")
	f.StringVar(&styleOpts.legendFormat, "legend-format", "", "legend format: json or yaml (default from --legend extension)")
	rootCmd.AddCommand(styleCmd)
}

func (f styleFlags) validate() error {
	if (f.zonesFile == "") == (f.zonesVersion == "") {
		return eris.New("exactly one of --zones or --zones-version is required")
	}
	if f.costsFile != "" && f.mode != "" {
		return eris.New("--costs and --mode are mutually exclusive")
	}
	withCosts := f.costsFile != "" || f.mode != ""
	if withCosts != (f.origin != "") {
		return eris.New("--origin goes with --costs or --mode")
	}
	return nil
}

func (f styleFlags) needsPostgres() bool {
	return f.zonesVersion != "" || f.mode != ""
}

func runStyle(ctx context.Context, stdout io.Writer, f styleFlags) error {
	if err := f.validate(); err != nil {
		return err
	}
	log := zap.L().With(zap.String("command", "style"))

	var pg zoneSource
	if f.needsPostgres() {
		s, err := openPostgres(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		pg = s
	}

	var (
		zc  *zones.Collection
		err error
	)
	if f.zonesFile != "" {
		zc, err = zones.LoadFile(f.zonesFile, zoneOptions())
	} else {
		zc, err = pg.Zones(ctx, f.zonesVersion, cfg.Render.IDProp)
	}
	if err != nil {
		return err
	}

	var costs map[string]float64
	switch {
	case f.costsFile != "":
		table, err := travelcost.LoadFile(f.costsFile)
		if err != nil {
			return err
		}
		costs = table.ForOrigin(f.origin)
	case f.mode != "":
		costs, err = pg.TravelCosts(ctx, f.mode, f.origin)
		if err != nil {
			return err
		}
	}

	renderer, err := newRenderer()
	if err != nil {
		return err
	}
	layer, err := renderer.Render(ctx, zc, costs)
	if err != nil {
		return err
	}

	if err := writeTo(f.out, stdout, layer.Zones.WriteGeoJSON); err != nil {
		return err
	}
	if f.legend != "" && layer.Legend != nil {
		format := f.legendFormat
		if format == "" {
			format = formatFromExt(f.legend)
		}
		if err := writeTo(f.legend, stdout, func(w io.Writer) error {
			return layer.Legend.Write(w, format)
		}); err != nil {
			return err
		}
	}

	log.Info("styled zones",
		zap.Int("zones", zc.Len()),
		zap.Int("costs", len(costs)),
		zap.Int("classes", len(layer.Colorscale)),
		zap.String("out", f.out),
	)
	return nil
}

// zoneSource is the PostGIS side of the style command.
type zoneSource interface {
	Zones(ctx context.Context, version, idProp string) (*zones.Collection, error)
	TravelCosts(ctx context.Context, mode, origin string) (map[string]float64, error)
}

// writeTo runs write against path, or stdout when path is "-".
func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(stdout)
	}
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(out); err != nil {
		_ = out.Close()
		return err
	}
	return eris.Wrapf(out.Close(), "close %s", path)
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
