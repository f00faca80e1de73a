package azure

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/bytedance/sonic"
)

const hoursPerYear = 8760

const (
	typeConsumption = "Consumption"
	typeReservation = "Reservation"
)

// retailPage is one page of the Azure Retail Prices API. Items stay raw so
// one malformed item is skipped instead of failing the page.
type retailPage struct {
	Items        []json.RawMessage `json:"Items"`
	NextPageLink string            `json:"NextPageLink"`
}

type retailItem struct {
	CurrencyCode    string  `json:"currencyCode"`
	RetailPrice     float64 `json:"retailPrice"`
	UnitPrice       float64 `json:"unitPrice"`
	ArmRegionName   string  `json:"armRegionName"`
	ArmSkuName      string  `json:"armSkuName"`
	ProductName     string  `json:"productName"`
	SkuName         string  `json:"skuName"`
	MeterName       string  `json:"meterName"`
	Type            string  `json:"type"`
	ReservationTerm string  `json:"reservationTerm"`
	UnitOfMeasure   string  `json:"unitOfMeasure"`
}

func decodeItem(raw json.RawMessage) (retailItem, error) {
	var item retailItem
	err := sonic.Unmarshal(raw, &item)
	return item, err
}

// priceSlots collects the lowest price seen per pricing model.
type priceSlots struct {
	onDemand   *float64
	spot       *float64
	reserved1Y *float64
	reserved3Y *float64
}

func (s *priceSlots) add(item retailItem) bool {
	if !usable(item) {
		return false
	}

	switch item.Type {
	case typeConsumption:
		if isSpot(item) {
			s.spot = lowest(s.spot, item.UnitPrice)
		} else {
			s.onDemand = lowest(s.onDemand, item.UnitPrice)
		}
		return true
	case typeReservation:
		years := reservationYears(item.ReservationTerm)
		if years == 0 {
			return false
		}
		hourly := item.UnitPrice / float64(hoursPerYear*years)
		if years == 1 {
			s.reserved1Y = lowest(s.reserved1Y, hourly)
		} else {
			s.reserved3Y = lowest(s.reserved3Y, hourly)
		}
		return true
	default:
		return false
	}
}

func usable(item retailItem) bool {
	if strings.Contains(item.ProductName, "Windows") {
		return false
	}
	if item.ArmSkuName == "" || item.Type == "" {
		return false
	}
	if item.CurrencyCode != "" && item.CurrencyCode != "USD" {
		return false
	}
	return item.UnitPrice >= 0 && !math.IsNaN(item.UnitPrice) && !math.IsInf(item.UnitPrice, 0)
}

func isSpot(item retailItem) bool {
	for _, name := range []string{item.SkuName, item.MeterName} {
		if strings.Contains(name, "Spot") || strings.Contains(name, "Low Priority") {
			return true
		}
	}
	return false
}

func reservationYears(term string) int {
	switch term {
	case "1 Year":
		return 1
	case "3 Years":
		return 3
	default:
		return 0
	}
}

func lowest(cur *float64, v float64) *float64 {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}
