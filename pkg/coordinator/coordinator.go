// Package coordinator defines the client's view of the cluster's topology
// authority (the "PD"/placement-driver style coordinator): the minimal
// contract the meta cache needs to refresh its view of region placement.
package coordinator

import (
	"context"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

// RegionLookupClient is the upstream source of truth for region placement.
// MetaCache calls it on lookup-miss and never on the hot path otherwise.
type RegionLookupClient interface {
	// ScanRegions returns, in start-key order, the regions whose ranges
	// intersect [startKey, endKey). limit caps the number of regions
	// returned; 0 means unbounded. Implementations backing
	// MetaCache.LookupRegionByKey always call this with
	// limit=1, endKey=startKey⊕0x00 (see meta_cache.go).
	ScanRegions(ctx context.Context, startKey, endKey []byte, limit int) ([]*kv.Region, error)

	// GetRegionByID returns the current descriptor for a region the client
	// already knows the ID of, used to refresh a single stale entry without
	// a key-range scan.
	GetRegionByID(ctx context.Context, regionID uint64) (*kv.Region, error)
}
