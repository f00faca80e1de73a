package aws

import "github.com/davidbz/cloudprice/internal/domain"

var regions = domain.Catalog{
	"us-east-1":      "US East (N. Virginia)",
	"us-east-2":      "US East (Ohio)",
	"us-west-1":      "US West (N. California)",
	"us-west-2":      "US West (Oregon)",
	"eu-west-1":      "Europe (Ireland)",
	"eu-central-1":   "Europe (Frankfurt)",
	"ap-northeast-1": "Asia Pacific (Tokyo)",
	"ap-southeast-1": "Asia Pacific (Singapore)",
}

var instanceTypes = domain.Catalog{
	"t2.micro":  "t2.micro",
	"t2.small":  "t2.small",
	"t2.medium": "t2.medium",
	"t3.micro":  "t3.micro",
	"t3.small":  "t3.small",
	"t3.medium": "t3.medium",
	"m5.large":  "m5.large",
	"m5.xlarge": "m5.xlarge",
}

// Sample prices served when live lookups are disabled.
const (
	sampleOnDemand   = 0.0464
	sampleSpot       = 0.0139
	sampleReserved1Y = 0.0299
	sampleReserved3Y = 0.0199
)

func copyCatalog(c domain.Catalog) domain.Catalog {
	out := make(domain.Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
