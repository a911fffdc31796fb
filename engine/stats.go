package engine

import (
	"time"

	"github.com/rs/zerolog/log"
)

type SearchStats struct {
	Nodes           int64           `json:"nodes"`
	QNodes          int64           `json:"q_nodes"`
	VCFNodes        int64           `json:"vcf_nodes"`
	VCTNodes        int64           `json:"vct_nodes"`
	EndgameNodes    int64           `json:"endgame_nodes"`
	TTProbes        int64           `json:"tt_probes"`
	TTHits          int64           `json:"tt_hits"`
	TTStores        int64           `json:"tt_stores"`
	TTOverwrites    int64           `json:"tt_overwrites"`
	TTReplacements  int64           `json:"tt_replacements"`
	Cutoffs         int64           `json:"cutoffs"`
	CandidateCount  int64           `json:"candidate_count"`
	ForcingAborts   int64           `json:"forcing_aborts"`
	SafetySwaps     int64           `json:"safety_swaps"`
	Start           time.Time       `json:"start"`
	Elapsed         time.Duration   `json:"elapsed"`
	DepthDurations  []time.Duration `json:"depth_durations"`
	CompletedDepths int             `json:"completed_depths"`
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// LogSearchStats writes one debug line summarising a search. component names
// the caller, e.g. "ai:search".
func LogSearchStats(component string, stats SearchStats) {
	elapsed := stats.Elapsed
	if elapsed == 0 && !stats.Start.IsZero() {
		elapsed = time.Since(stats.Start)
	}
	nps := 0.0
	if elapsed > 0 {
		nps = float64(stats.Nodes) / elapsed.Seconds()
	}
	branch := 0.0
	if stats.Nodes > 0 {
		branch = float64(stats.CandidateCount) / float64(stats.Nodes)
	}
	depths := make([]int64, 0, len(stats.DepthDurations))
	for _, d := range stats.DepthDurations {
		depths = append(depths, d.Milliseconds())
	}
	log.Debug().
		Str("component", component).
		Int64("nodes", stats.Nodes).
		Int64("qnodes", stats.QNodes).
		Int64("vcf_nodes", stats.VCFNodes).
		Int64("vct_nodes", stats.VCTNodes).
		Int64("endgame_nodes", stats.EndgameNodes).
		Float64("nps", nps).
		Float64("avg_branch", branch).
		Float64("tt_hit_pct", percent(stats.TTHits, stats.TTProbes)).
		Float64("tt_replace_pct", percent(stats.TTReplacements, stats.TTStores)).
		Int64("cutoffs", stats.Cutoffs).
		Int64("forcing_aborts", stats.ForcingAborts).
		Int("completed_depths", stats.CompletedDepths).
		Ints64("depth_ms", depths).
		Dur("elapsed", elapsed).
		Msg("search-stats")
}
