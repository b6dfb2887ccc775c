package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/render"
	"github.com/sells-group/zonemap/internal/store"
	"github.com/sells-group/zonemap/internal/travelcost"
	"github.com/sells-group/zonemap/internal/zones"
)

type modeOption struct {
	store.Option
	Versions []store.Option `json:"versions"`
}

type catalogResponse struct {
	TransportZones []store.Option `json:"transport_zones"`
	TravelCosts    []modeOption   `json:"travel_costs"`
}

type originsResponse struct {
	Mode    string   `json:"mode"`
	Hash    string   `json:"hash"`
	Origins []string `json:"origins"`
}

// mapResponse carries a styled layer. Bounds is [minX, minY, maxX, maxY].
type mapResponse struct {
	RenderID   string          `json:"render_id"`
	Styled     bool            `json:"styled"`
	Classes    []float64       `json:"classes,omitempty"`
	Colorscale []string        `json:"colorscale,omitempty"`
	Legend     *render.Legend  `json:"legend,omitempty"`
	Bounds     []float64       `json:"bounds,omitempty"`
	Zones      json.RawMessage `json:"zones"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tz, err := s.catalog.TransportZoneVersions(ctx)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	modes, err := s.catalog.TravelCostModes(ctx)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	resp := catalogResponse{
		TransportZones: tz,
		TravelCosts:    make([]modeOption, 0, len(modes)),
	}
	if resp.TransportZones == nil {
		resp.TransportZones = []store.Option{}
	}
	for _, m := range modes {
		versions, err := s.catalog.TravelCostVersions(ctx, m.Value)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		resp.TravelCosts = append(resp.TravelCosts, modeOption{Option: m, Versions: versions})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrigins(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	hash := chi.URLParam(r, "hash")

	path, err := s.catalog.Resolve(r.Context(), mode, hash)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	table, err := travelcost.LoadFile(path)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	origins := table.Origins()
	if origins == nil {
		origins = []string{}
	}
	writeJSON(w, http.StatusOK, originsResponse{Mode: mode, Hash: hash, Origins: origins})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := render.LayerKey{
		Zones:  q.Get("zones"),
		Mode:   q.Get("mode"),
		Costs:  q.Get("costs"),
		Origin: q.Get("origin"),
	}
	if key.Zones == "" {
		writeError(w, http.StatusBadRequest, "zones is required")
		return
	}
	withCosts := key.Mode != "" || key.Costs != "" || key.Origin != ""
	if withCosts && (key.Mode == "" || key.Costs == "" || key.Origin == "") {
		writeError(w, http.StatusBadRequest, "mode, costs and origin must be given together")
		return
	}

	ctx := r.Context()
	zonePath, err := s.resolveZones(ctx, key.Zones)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.checkZoneSource(key.Zones, zonePath)

	if cached, ok := s.cache.Get(key); ok {
		w.Header().Set("X-Render-ID", cached.RenderID)
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(cached.Data)
		return
	}

	zc, err := zones.LoadFile(zonePath, s.zoneOpts)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	var costs map[string]float64
	if withCosts {
		costPath, err := s.catalog.Resolve(ctx, key.Mode, key.Costs)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		table, err := travelcost.LoadFile(costPath)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		costs = table.ForOrigin(key.Origin)
	}

	layer, err := s.renderer.Render(ctx, zc, costs)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	var geo bytes.Buffer
	if err := layer.Zones.WriteGeoJSON(&geo); err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp := mapResponse{
		RenderID:   uuid.NewString(),
		Styled:     layer.Styled,
		Classes:    layer.Classes,
		Colorscale: layer.Colorscale,
		Legend:     layer.Legend,
		Zones:      geo.Bytes(),
	}
	if b := layer.Bounds; b != nil {
		resp.Bounds = []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.cache.Put(key, render.CachedLayer{RenderID: resp.RenderID, Data: data})

	s.log.Debug("rendered map",
		zap.String("render_id", resp.RenderID),
		zap.String("key", key.String()),
		zap.Int("zones", layer.Zones.Len()),
	)

	w.Header().Set("X-Render-ID", resp.RenderID)
	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) resolveZones(ctx context.Context, hash string) (string, error) {
	zoneFile, err := s.catalog.ZoneFile(ctx)
	if err != nil {
		return "", err
	}
	return s.catalog.Resolve(ctx, zoneFile, hash)
}

// checkZoneSource drops cached layers of a zone version whose source file
// changed since they were rendered: the version was re-registered under a
// new path or the file was rewritten in place.
func (s *Server) checkZoneSource(hash, path string) {
	fp := sourceFingerprint(path)

	s.sourcesMu.Lock()
	prev, seen := s.zoneSources[hash]
	s.zoneSources[hash] = fp
	s.sourcesMu.Unlock()

	if seen && prev != fp {
		n := s.cache.InvalidateZones(hash)
		s.log.Info("zone source changed, dropped cached layers",
			zap.String("zones", hash),
			zap.String("path", path),
			zap.Int("layers", n),
		)
	}
}

func sourceFingerprint(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return path
	}
	return fmt.Sprintf("%s@%d", path, fi.ModTime().UnixNano())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}
