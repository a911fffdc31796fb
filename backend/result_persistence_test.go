package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanyuanya/gomoku-game/engine"
)

func TestResolveResultsPathKeepsAbsolutePath(t *testing.T) {
	absolute := "/tmp/results.gob"
	if got := resolveResultsPath(absolute); got != absolute {
		t.Fatalf("expected absolute path unchanged, got %q", got)
	}
}

func TestResolveResultsPathUsesDockerCacheDirWhenPresent(t *testing.T) {
	temp := t.TempDir()
	old := dockerCacheDir
	dockerCacheDir = temp
	t.Cleanup(func() { dockerCacheDir = old })

	want := filepath.Join(temp, "results.gob")
	if got := resolveResultsPath("results.gob"); got != want {
		t.Fatalf("expected docker cache path %q, got %q", want, got)
	}
}

func TestResolveResultsPathFallsBackToRelative(t *testing.T) {
	old := dockerCacheDir
	dockerCacheDir = filepath.Join(t.TempDir(), "missing")
	t.Cleanup(func() { dockerCacheDir = old })

	if got := resolveResultsPath("results.gob"); got != "results.gob" {
		t.Fatalf("expected relative path fallback, got %q", got)
	}
}

func TestResultsPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.gob")
	src := newAnalysisQueue(testStore(nil), nil)
	best := engine.Candidate{X: 7, Y: 8, Score: 12, Reason: "live three"}
	src.mu.Lock()
	src.storeResultLocked(11, analysisResult{ID: hashToBoardID(11), BestMove: &best, Depth: 9, PV: []engine.PVStep{{X: 7, Y: 8, Player: engine.PlayerBlack}}}, 10)
	src.storeResultLocked(12, analysisResult{ID: hashToBoardID(12), Depth: 4}, 10)
	src.mu.Unlock()

	n, err := src.persistResults(path)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	dst := newAnalysisQueue(testStore(func(c *Config) { c.QueueResults = 1 }), nil)
	n, err = dst.loadResults(path)
	require.NoError(t, err)
	require.Equal(t, 1, n, "restore honours the result limit")
	_, result, err := dst.Lookup(12)
	require.NoError(t, err)
	require.Equal(t, 4, result.Depth)

	dst = newAnalysisQueue(testStore(nil), nil)
	_, err = dst.loadResults(path)
	require.NoError(t, err)
	_, result, err = dst.Lookup(11)
	require.NoError(t, err)
	require.Equal(t, best, *result.BestMove)
	require.Len(t, result.PV, 1)
}

func TestLoadResultsMissingOrCorrupt(t *testing.T) {
	q := newAnalysisQueue(testStore(nil), nil)
	n, err := q.loadResults(filepath.Join(t.TempDir(), "absent.gob"))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = q.loadResults("")
	require.NoError(t, err)
	require.Zero(t, n)

	bad := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, os.WriteFile(bad, []byte("not gob"), 0o644))
	_, err = q.loadResults(bad)
	require.Error(t, err)
}
