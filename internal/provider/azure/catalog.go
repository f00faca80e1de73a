package azure

import "github.com/davidbz/cloudprice/internal/domain"

var regions = domain.Catalog{
	"eastus":        "East US",
	"eastus2":       "East US 2",
	"westus":        "West US",
	"westus2":       "West US 2",
	"northeurope":   "North Europe",
	"westeurope":    "West Europe",
	"southeastasia": "Southeast Asia",
	"japaneast":     "Japan East",
}

var instanceTypes = domain.Catalog{
	"Standard_B1s":    "Standard_B1s",
	"Standard_B2s":    "Standard_B2s",
	"Standard_D2s_v3": "Standard_D2s_v3",
	"Standard_D4s_v3": "Standard_D4s_v3",
	"Standard_F2s_v2": "Standard_F2s_v2",
	"Standard_F4s_v2": "Standard_F4s_v2",
	"Standard_E2s_v3": "Standard_E2s_v3",
	"Standard_E4s_v3": "Standard_E4s_v3",
}

const (
	sampleOnDemand   = 0.0496
	sampleSpot       = 0.0149
	sampleReserved1Y = 0.0298
	sampleReserved3Y = 0.0199
)

func copyCatalog(c domain.Catalog) domain.Catalog {
	out := make(domain.Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
