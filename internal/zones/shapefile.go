package zones

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ReadShapefile reads polygon zones from a shapefile. Every DBF attribute
// becomes a string property; records without usable geometry are skipped.
func ReadShapefile(path string, opts Options) (*Collection, error) {
	dec, err := attributeDecoder(opts.Charset)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zones: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	c := New()
	var skipped int
	unsupported := make(map[string]int)
	for reader.Next() {
		n, shape := reader.Shape()

		g, ok := shapeGeometry(shape)
		if !ok {
			unsupported[fmt.Sprintf("%T", shape)]++
			continue
		}
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(names))
		for i, name := range names {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if raw == "" {
				props[name] = nil
				continue
			}
			val, decErr := dec.String(raw)
			if decErr != nil {
				zap.L().Debug("zones: undecodable attribute",
					zap.Int("record", n), zap.String("field", name), zap.Error(decErr))
				val = raw
			}
			props[name] = val
		}

		c.Features = append(c.Features, &geojson.Feature{Geometry: g, Properties: props})
	}

	if skipped > 0 {
		zap.L().Debug("zones: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	for shape, count := range unsupported {
		zap.L().Warn("zones: unsupported shapefile geometry",
			zap.String("path", path),
			zap.String("shape", shape),
			zap.Int("records", count),
		)
	}
	return c, nil
}

func attributeDecoder(charset string) (*encoding.Decoder, error) {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "zones: unknown charset %q", charset)
	}
	return enc.NewDecoder(), nil
}

// shapeGeometry converts a record to a 2D geometry. Z and M values are
// dropped. ok is false for geometry types zones cannot hold; a nil geometry
// with ok set means the record is empty or malformed.
func shapeGeometry(shape shp.Shape) (g geom.T, ok bool) {
	switch s := shape.(type) {
	case *shp.Null:
		return nil, true
	case *shp.Polygon:
		return polygonToMultiPolygon(s), true
	case *shp.PolygonZ:
		return polygonToMultiPolygon(&shp.Polygon{NumParts: s.NumParts, Parts: s.Parts, Points: s.Points}), true
	case *shp.PolygonM:
		return polygonToMultiPolygon(&shp.Polygon{NumParts: s.NumParts, Parts: s.Parts, Points: s.Points}), true
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), true
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), true
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), true
	default:
		return nil, false
	}
}

// polygonToMultiPolygon groups shapefile rings into polygons. Clockwise
// rings start a new polygon; counter-clockwise rings are holes of the
// polygon before them.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("zones: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) < 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("zones: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace sum of a flat XY ring; negative means clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}
