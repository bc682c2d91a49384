package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGraphFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadGraph(t *testing.T) {
	t.Parallel()

	t.Run("missing cost defaults to geometric distance", func(t *testing.T) {
		t.Parallel()
		path := writeGraphFile(t, `{
			"nodes": [
				{"id": 1, "at": [0, 0]},
				{"id": 2, "at": [3, 4]}
			],
			"edges": [
				{"from": 1, "to": 2}
			]
		}`)

		g, err := LoadGraph(path)
		require.NoError(t, err)
		assert.InDelta(t, 5, edgeCost(t, g, 1, 2), 1e-12)
		assert.InDelta(t, 5, edgeCost(t, g, 2, 1), 1e-12, "edges default to bidirectional")
	})

	t.Run("explicit cost and directional flag", func(t *testing.T) {
		t.Parallel()
		path := writeGraphFile(t, `{
			"nodes": [
				{"id": 1, "at": [0, 0]},
				{"id": 2, "at": [3, 4]}
			],
			"edges": [
				{"from": 1, "to": 2, "cost": 9.5, "directional": true}
			]
		}`)

		g, err := LoadGraph(path)
		require.NoError(t, err)
		assert.InDelta(t, 9.5, edgeCost(t, g, 1, 2), 1e-12)
		assert.Empty(t, g.Neighbors(2), "a directional edge must not be mirrored")
	})

	t.Run("edge to unknown node fails", func(t *testing.T) {
		t.Parallel()
		path := writeGraphFile(t, `{
			"nodes": [{"id": 1, "at": [0, 0]}],
			"edges": [{"from": 1, "to": 9}]
		}`)

		_, err := LoadGraph(path)
		var invalid *InvalidGraphError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("malformed JSON fails", func(t *testing.T) {
		t.Parallel()
		path := writeGraphFile(t, `{"nodes": [`)
		_, err := LoadGraph(path)
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		t.Parallel()
		_, err := LoadGraph(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"pursuit": {"lookahead_m": 6},
		"loop": {"penalty_factor": 25}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Named values override; everything else keeps its default.
	assert.InDelta(t, 6, cfg.Pursuit.LookaheadM, 1e-12)
	assert.InDelta(t, 25, cfg.Loop.PenaltyFactor, 1e-12)
	assert.InDelta(t, DefaultConfig().Pursuit.WheelbaseM, cfg.Pursuit.WheelbaseM, 1e-12)
	assert.Equal(t, DefaultConfig().Loop.ClearDebounceTicks, cfg.Loop.ClearDebounceTicks)
}

func TestDefaultConfigIsSane(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	assert.Positive(t, cfg.Loop.TickSeconds)
	assert.Greater(t, cfg.Monitor.CautionDistanceM["front"], cfg.Monitor.BlockDistanceM,
		"caution must engage before the hard stop")
	assert.True(t, cfg.Loop.DegradedSpeedCap > 0 && cfg.Loop.DegradedSpeedCap < 1)
	assert.False(t, math.IsInf(cfg.Loop.PenaltyFactor, 1))
}
