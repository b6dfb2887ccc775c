package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndListCatalog(t *testing.T) {
	dir := useTestConfig(t)
	zonesPath, _ := writeFixtures(t, dir)
	ctx := context.Background()

	catalog, err := openCatalog(ctx)
	require.NoError(t, err)
	defer catalog.Close()

	require.NoError(t, registerArtifact(ctx, catalog, "transport_zones.geojson", "tz1", zonesPath))

	path, err := catalog.Resolve(ctx, "transport_zones.geojson", "tz1")
	require.NoError(t, err)
	assert.Equal(t, zonesPath, path)

	var out bytes.Buffer
	require.NoError(t, listCatalog(ctx, &out, catalog))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "FILE"))
	assert.Contains(t, lines[1], "transport_zones.geojson")
	assert.Contains(t, lines[1], "tz1")
}

func TestRunOrigins(t *testing.T) {
	dir := useTestConfig(t)
	_, costsPath := writeFixtures(t, dir)

	var out bytes.Buffer
	require.NoError(t, runOrigins(context.Background(), &out, costsPath, ""))
	assert.Equal(t, "1\n2\n", out.String())
}

func TestRunOrigins_FlagErrors(t *testing.T) {
	useTestConfig(t)
	err := runOrigins(context.Background(), &bytes.Buffer{}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of --costs or --mode is required")

	err = runOrigins(context.Background(), &bytes.Buffer{}, "c.csv", "car")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}
