package domain

import "math"

const percent = 100.0

// Pricing models reported in Comparison.Savings.
const (
	SavingsSpot       = "spot"
	SavingsReserved1Y = "reserved_1y"
	SavingsReserved3Y = "reserved_3y"
)

// Comparison is the side-by-side view of one query across providers.
type Comparison struct {
	InstanceType string                              `json:"instance_type"`
	Region       string                              `json:"region"`
	Prices       []PriceRecord                       `json:"prices"`
	Savings      map[ProviderName]map[string]float64 `json:"savings"`
	Cheapest     ProviderName                        `json:"cheapest_provider,omitempty"`
}

// BuildComparison computes, per provider, the percentage saved by each
// discounted pricing model relative to on-demand, and the provider with the
// lowest on-demand price.
func BuildComparison(query PriceQuery, records []PriceRecord) Comparison {
	cmp := Comparison{
		InstanceType: query.ResourceKind,
		Region:       query.Region,
		Prices:       records,
		Savings:      make(map[ProviderName]map[string]float64, len(records)),
		Cheapest:     "",
	}

	cheapest := math.Inf(1)
	for _, r := range records {
		if r.OnDemandPrice < cheapest {
			cheapest = r.OnDemandPrice
			cmp.Cheapest = r.Provider
		}

		savings := recordSavings(r)
		if len(savings) > 0 {
			cmp.Savings[r.Provider] = savings
		}
	}

	return cmp
}

func recordSavings(r PriceRecord) map[string]float64 {
	savings := map[string]float64{}
	if r.OnDemandPrice <= 0 {
		return savings
	}

	add := func(model string, price *float64) {
		if price == nil {
			return
		}
		savings[model] = roundTenth((r.OnDemandPrice - *price) / r.OnDemandPrice * percent)
	}
	add(SavingsSpot, r.SpotPrice)
	add(SavingsReserved1Y, r.Reserved1YPrice)
	add(SavingsReserved3Y, r.Reserved3YPrice)

	return savings
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
