package domain

import (
	"strings"
	"time"
)

const (
	// RegionsCacheKey holds the merged region catalog.
	RegionsCacheKey = "regions"

	// InstanceTypesCacheKey holds the merged instance type catalog.
	InstanceTypesCacheKey = "instance_types"

	computeKeyPrefix = "compute"

	// DefaultPriceTTL applies to compute price entries.
	DefaultPriceTTL = time.Hour

	// DefaultCatalogTTL applies to region and instance type catalogs.
	DefaultCatalogTTL = 24 * time.Hour
)

// keyEscaper keeps ':' out of key components so compute keys stay unambiguous.
//
//nolint:gochecknoglobals // immutable replacer
var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// ComputeCacheKey builds "compute:{kind}:{region}".
func ComputeCacheKey(resourceKind, region string) string {
	return computeKeyPrefix + ":" + keyEscaper.Replace(resourceKind) + ":" + keyEscaper.Replace(region)
}
