package engine

const (
	oppRouteWeight = 1.05
	materialWeight = 10
)

func sumRouteScores(routes []ThreatRoute) int {
	total := 0
	for _, r := range routes {
		total += r.Score
	}
	return total
}

// EvaluateBoard scores the position from player's point of view. Opponent routes
// weigh slightly more than own routes.
func EvaluateBoard(b Board, player Player) float64 {
	own := sumRouteScores(ScanThreatRoutes(b, player))
	opp := sumRouteScores(ScanThreatRoutes(b, player.Other()))
	ownCell, oppCell := player.Cell(), player.Other().Cell()
	stoneDiff := 0
	for _, c := range b.cells {
		switch c {
		case ownCell:
			stoneDiff++
		case oppCell:
			stoneDiff--
		}
	}
	return float64(own) - float64(opp)*oppRouteWeight + float64(stoneDiff*materialWeight)
}
