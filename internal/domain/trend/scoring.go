package trend

import (
	"math"
	"sort"
)

// DecayLambda is the exponential decay constant per millisecond of event age.
// The recency half-life is ln(2)/λ ≈ 693 ms.
const DecayLambda = 0.001

// RecencyFactor sums each event weight decayed by its age at nowMillis.
// An empty log yields 0.
func RecencyFactor(events []DecayEvent, nowMillis int64) float64 {
	var factor float64
	for _, e := range events {
		age := float64(nowMillis - e.Timestamp)
		factor += e.Weight * math.Exp(-DecayLambda*age)
	}
	return factor
}

// GeoBoost dampens a score by distance: 1 at 0 km, strictly decreasing, never 0
func GeoBoost(distanceKm float64) float64 {
	return 1 / (1 + distanceKm)
}

// CompositeScore combines cumulative score, recency and proximity
func CompositeScore(cumulative, recency, distanceKm float64) float64 {
	return (cumulative + recency) * GeoBoost(distanceKm)
}

// SortResults orders results by score descending, breaking ties by item id
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ItemID < results[j].ItemID
	})
}
