package aws

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

const (
	hourlyUnit       = "Hrs"
	usd              = "USD"
	noUpfront        = "No Upfront"
	standardOffering = "standard"
	leaseOneYear     = "1yr"
	leaseThreeYears  = "3yr"
)

var errNoHourlyPrice = errors.New("no hourly USD price")

// priceListItem is the subset of a Pricing API PriceList document we read.
type priceListItem struct {
	Terms struct {
		OnDemand map[string]offerTerm `json:"OnDemand"`
		Reserved map[string]offerTerm `json:"Reserved"`
	} `json:"terms"`
}

type offerTerm struct {
	PriceDimensions map[string]priceDimension `json:"priceDimensions"`
	TermAttributes  struct {
		LeaseContractLength string `json:"LeaseContractLength"`
		OfferingClass       string `json:"OfferingClass"`
		PurchaseOption      string `json:"PurchaseOption"`
	} `json:"termAttributes"`
}

type priceDimension struct {
	Unit         string            `json:"unit"`
	PricePerUnit map[string]string `json:"pricePerUnit"`
}

// parsedPrices holds the hourly prices found in one document.
type parsedPrices struct {
	onDemand   *float64
	reserved1Y *float64
	reserved3Y *float64
}

func parsePriceList(doc string) (parsedPrices, error) {
	var item priceListItem
	if err := sonic.UnmarshalString(doc, &item); err != nil {
		return parsedPrices{}, fmt.Errorf("failed to decode price list: %w", err)
	}

	var out parsedPrices
	for _, term := range item.Terms.OnDemand {
		if price, err := hourlyPrice(term); err == nil {
			out.onDemand = &price
			break
		}
	}

	for _, term := range item.Terms.Reserved {
		attrs := term.TermAttributes
		if attrs.PurchaseOption != noUpfront || attrs.OfferingClass != standardOffering {
			continue
		}
		price, err := hourlyPrice(term)
		if err != nil {
			continue
		}
		switch attrs.LeaseContractLength {
		case leaseOneYear:
			out.reserved1Y = &price
		case leaseThreeYears:
			out.reserved3Y = &price
		}
	}

	return out, nil
}

func hourlyPrice(term offerTerm) (float64, error) {
	for _, dim := range term.PriceDimensions {
		if dim.Unit != hourlyUnit {
			continue
		}
		raw, ok := dim.PricePerUnit[usd]
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			continue
		}
		return price, nil
	}
	return 0, errNoHourlyPrice
}
