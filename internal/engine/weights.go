package engine

// Scoring modes select which blend of factors ranks a candidate.
const (
	ModeAggressive   = "aggressive"
	ModeBalanced     = "balanced"
	ModeConservative = "conservative"
)

// Factor names shared by every classifier's weight table.
const (
	factorProfit    = "profit"
	factorVolume    = "volume"
	factorFreshness = "freshness"
	factorStability = "stability"
)

// weightTable maps factor name to blend weight for one scoring mode. All
// classifiers share this shape so the mode formulas live in one place
// instead of being copied per classifier.
type weightTable map[string]float64

// opportunityWeights blends the three live-scan factors. Aggressive chases
// raw profit; conservative favours liquidity and freshness over it.
var opportunityWeights = map[string]weightTable{
	ModeAggressive:   {factorProfit: 0.5, factorVolume: 0.3, factorFreshness: 0.2},
	ModeBalanced:     {factorProfit: 0.33, factorVolume: 0.33, factorFreshness: 0.34},
	ModeConservative: {factorFreshness: 0.4, factorVolume: 0.4, factorProfit: 0.2},
}

// stablePickWeights adds the stability score as a fourth factor.
var stablePickWeights = map[string]weightTable{
	ModeAggressive:   {factorProfit: 0.4, factorVolume: 0.3, factorFreshness: 0.2, factorStability: 0.1},
	ModeBalanced:     {factorProfit: 0.25, factorVolume: 0.25, factorFreshness: 0.25, factorStability: 0.25},
	ModeConservative: {factorStability: 0.4, factorFreshness: 0.3, factorVolume: 0.2, factorProfit: 0.1},
}

// blend computes the weighted sum of the given factor scores. Factors
// absent from the table contribute nothing.
func blend(table weightTable, factors map[string]float64) float64 {
	var total float64
	for name, weight := range table {
		total += weight * factors[name]
	}
	return total
}
