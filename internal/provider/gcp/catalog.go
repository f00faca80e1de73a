package gcp

import "github.com/davidbz/cloudprice/internal/domain"

var regions = domain.Catalog{
	"us-central1":  "US Central (Iowa)",
	"us-east1":     "US East (South Carolina)",
	"us-east4":     "US East (Northern Virginia)",
	"us-west1":     "US West (Oregon)",
	"europe-west1": "Europe West (Belgium)",
	"asia-east1":   "Asia East (Taiwan)",
}

var instanceTypes = domain.Catalog{
	"n1-standard-1": "n1-standard-1",
	"n1-standard-2": "n1-standard-2",
	"n1-standard-4": "n1-standard-4",
	"n1-standard-8": "n1-standard-8",
	"n2-standard-2": "n2-standard-2",
	"n2-standard-4": "n2-standard-4",
	"e2-standard-2": "e2-standard-2",
	"e2-standard-4": "e2-standard-4",
}

const (
	sampleOnDemand   = 0.0475
	sampleSpot       = 0.01
	sampleReserved1Y = 0.0299
	sampleReserved3Y = 0.0214
)

func copyCatalog(c domain.Catalog) domain.Catalog {
	out := make(domain.Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
