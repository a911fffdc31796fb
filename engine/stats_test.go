package engine

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestLogSearchStats(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	defer func() { log.Logger = prev }()

	LogSearchStats("ai:search", SearchStats{
		Nodes:          200,
		TTProbes:       10,
		TTHits:         4,
		Elapsed:        time.Second,
		DepthDurations: []time.Duration{10 * time.Millisecond, 30 * time.Millisecond},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "search-stats", line["message"])
	require.Equal(t, "ai:search", line["component"])
	require.EqualValues(t, 200, line["nodes"])
	require.EqualValues(t, 40, line["tt_hit_pct"])
	require.EqualValues(t, 200, line["nps"])
}
