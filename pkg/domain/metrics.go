package domain

// HealthScore combines the mean nutrient uptake of trees with the share of
// healthy trees, weighted equally, and floors the result to an integer in
// 0–100. A network without trees scores 0.
func HealthScore(trees []Tree) int64 {
	if len(trees) == 0 {
		return 0
	}
	var uptake, healthy int64
	for _, t := range trees {
		uptake += t.NutrientUptakeRate
		if t.HealthStatus == HealthHealthy {
			healthy++
		}
	}
	n := int64(len(trees))
	// mean(uptake)/2 + pct(healthy)/2 over a common denominator.
	return (uptake + healthy*PercentMax) / (2 * n)
}

// CarbonEfficiency returns carbon stored per hectare, rounded down.
func CarbonEfficiency(n Network) int64 {
	if n.CarbonCapacity <= 0 || n.ForestAreaHectares <= 0 {
		return 0
	}
	return n.CarbonCapacity / n.ForestAreaHectares
}
