package gcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const nanosPerUnit = 1e9

var errNoPrice = errors.New("sku has no tiered rate")

// skuPage is one page of the SKU list. Skus stay raw so one malformed SKU
// is skipped instead of failing the page.
type skuPage struct {
	Skus          []json.RawMessage `json:"skus"`
	NextPageToken string            `json:"nextPageToken"`
}

type sku struct {
	SkuID          string        `json:"skuId"`
	Description    string        `json:"description"`
	Category       skuCategory   `json:"category"`
	ServiceRegions []string      `json:"serviceRegions"`
	PricingInfo    []pricingInfo `json:"pricingInfo"`
}

type skuCategory struct {
	ResourceFamily string `json:"resourceFamily"`
	ResourceGroup  string `json:"resourceGroup"`
	UsageType      string `json:"usageType"`
}

type pricingInfo struct {
	PricingExpression struct {
		UsageUnit   string `json:"usageUnit"`
		TieredRates []struct {
			UnitPrice money `json:"unitPrice"`
		} `json:"tieredRates"`
	} `json:"pricingExpression"`
}

// money mirrors google.type.Money; units is an int64 encoded as a string.
type money struct {
	CurrencyCode string `json:"currencyCode"`
	Units        string `json:"units"`
	Nanos        int64  `json:"nanos"`
}

func decodeSKU(raw json.RawMessage) (sku, error) {
	var s sku
	err := sonic.Unmarshal(raw, &s)
	return s, err
}

type pricingModel int

const (
	modelUnknown pricingModel = iota
	modelOnDemand
	modelSpot
	modelCommit1Y
	modelCommit3Y
)

// classify prefers usageType and falls back to resourceGroup and description.
func classify(s sku) pricingModel {
	switch s.Category.UsageType {
	case "OnDemand":
		return modelOnDemand
	case "Preemptible", "Spot":
		return modelSpot
	case "Commit1Yr":
		return modelCommit1Y
	case "Commit3Yr":
		return modelCommit3Y
	}

	group := s.Category.ResourceGroup
	switch {
	case strings.Contains(group, "OnDemand"):
		return modelOnDemand
	case strings.Contains(group, "Spot"):
		return modelSpot
	case strings.Contains(group, "Commitment"):
		if strings.Contains(s.Description, "1 Year") {
			return modelCommit1Y
		}
		if strings.Contains(s.Description, "3 Year") {
			return modelCommit3Y
		}
	}
	return modelUnknown
}

func (s sku) servesRegion(region string) bool {
	return len(s.ServiceRegions) == 0 || slices.Contains(s.ServiceRegions, region)
}

// price returns units + nanos/1e9 of the first tiered rate.
func (s sku) price() (float64, error) {
	if len(s.PricingInfo) == 0 || len(s.PricingInfo[0].PricingExpression.TieredRates) == 0 {
		return 0, errNoPrice
	}
	unit := s.PricingInfo[0].PricingExpression.TieredRates[0].UnitPrice

	var units int64
	if unit.Units != "" {
		parsed, err := strconv.ParseInt(unit.Units, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid units %q: %w", unit.Units, err)
		}
		units = parsed
	}

	price := float64(units) + float64(unit.Nanos)/nanosPerUnit
	if price < 0 {
		return 0, fmt.Errorf("negative price %f", price)
	}
	return price, nil
}
