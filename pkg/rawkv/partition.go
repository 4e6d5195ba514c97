package rawkv

import (
	"context"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv/kvcoord"
)

// partitionResult groups a batch's inputs by region, preserving the order
// in which each region was first seen so that sub-batch iteration (and
// hence which status reduceStatus reports first) is deterministic for a
// given input order even though the public API doesn't promise anything
// about result ordering.
type partitionResult[T any] struct {
	order   []uint64
	regions map[uint64]*kv.Region
	items   map[uint64][]T
}

// partitionByRegion implements the orchestrator's partition phase: look up
// every input's region, group by region id, and abort the whole batch on
// the first lookup failure ("without a region we cannot send anything;
// partial cluster visibility is treated as fatal for the batch").
func partitionByRegion[T any](
	ctx context.Context, cache *kvcoord.MetaCache, items []T, keyOf func(T) []byte,
) (*partitionResult[T], kvcoord.Status) {
	pr := &partitionResult[T]{
		regions: make(map[uint64]*kv.Region),
		items:   make(map[uint64][]T),
	}
	for _, item := range items {
		region, status := cache.LookupRegionByKey(ctx, keyOf(item))
		if !status.IsOK() {
			return nil, status
		}
		if _, ok := pr.regions[region.ID]; !ok {
			pr.regions[region.ID] = region
			pr.order = append(pr.order, region.ID)
		}
		pr.items[region.ID] = append(pr.items[region.ID], item)
	}
	metrics := cache.Metrics()
	for _, regionID := range pr.order {
		metrics.BatchSubsizes.Observe(float64(len(pr.items[regionID])))
	}
	return pr, kvcoord.OK()
}
