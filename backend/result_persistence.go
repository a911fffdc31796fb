package main

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const resultsSnapshotVersion = 1

var dockerCacheDir = "/cache_logs"

type resultsSnapshot struct {
	Version int
	Keys    []uint64
	Results []analysisResult
}

// resolveResultsPath places relative paths under the container cache directory
// when it exists.
func resolveResultsPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if stat, err := os.Stat(dockerCacheDir); err == nil && stat.IsDir() {
		return filepath.Join(dockerCacheDir, path)
	}
	return path
}

// loadResults restores finished analyses written by persistResults. A missing
// file is not an error.
func (q *analysisQueue) loadResults(path string) (int, error) {
	path = resolveResultsPath(path)
	if path == "" {
		return 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer file.Close()

	var snapshot resultsSnapshot
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if snapshot.Version != resultsSnapshotVersion || len(snapshot.Keys) != len(snapshot.Results) {
		return 0, fmt.Errorf("%s: unsupported snapshot version %d", path, snapshot.Version)
	}
	limit := q.config.Get().QueueResults
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, key := range snapshot.Keys {
		q.storeResultLocked(key, snapshot.Results[i], limit)
	}
	return len(q.results), nil
}

// persistResults writes the stored results to a temp file and renames it over path.
func (q *analysisQueue) persistResults(path string) (int, error) {
	path = resolveResultsPath(path)
	if path == "" {
		return 0, nil
	}
	q.mu.Lock()
	snapshot := resultsSnapshot{
		Version: resultsSnapshotVersion,
		Keys:    append([]uint64(nil), q.resultOrder...),
		Results: make([]analysisResult, 0, len(q.resultOrder)),
	}
	for _, key := range q.resultOrder {
		snapshot.Results = append(snapshot.Results, q.results[key])
	}
	q.mu.Unlock()

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}
	if err := gob.NewEncoder(file).Encode(&snapshot); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return 0, err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return len(snapshot.Results), nil
}

func restoreResults(q *analysisQueue, path string) {
	n, err := q.loadResults(path)
	if err != nil {
		log.Warn().Err(err).Str("component", "ai:cache").Msg("could not restore analysis results")
		return
	}
	if n > 0 {
		log.Info().Str("component", "ai:cache").Int("results", n).Str("path", resolveResultsPath(path)).Msg("restored analysis results")
	}
}

func saveResults(q *analysisQueue, path string) {
	n, err := q.persistResults(path)
	if err != nil {
		log.Error().Err(err).Str("component", "ai:cache").Msg("could not persist analysis results")
		return
	}
	if n > 0 {
		log.Info().Str("component", "ai:cache").Int("results", n).Str("path", resolveResultsPath(path)).Msg("stored analysis results")
	}
}
