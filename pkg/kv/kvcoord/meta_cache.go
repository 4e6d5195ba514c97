package kvcoord

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"golang.org/x/sync/singleflight"

	"github.com/lizhiqiangZetyun/dingo-store/internal/logutil"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/coordinator"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

// cacheEntry is the value stored in the ordered btree, keyed by the
// region's StartKey. We key on StartKey (rather than EndKey, as the
// teacher's meta1/meta2 scheme does) because this client has no meta-range
// hierarchy to walk: a single flat index over start keys is enough, and a
// predecessor search (btree.DescendLessOrEqual) against it gives us the
// owning region directly.
type cacheEntry struct {
	region *kv.Region
}

func (e *cacheEntry) Less(than btree.Item) bool {
	return bytes.Compare(e.region.StartKey, than.(*cacheEntry).region.StartKey) < 0
}

// MetaCache is an in-memory ordered index over regions by start-key. It
// looks up the region that owns a given key, bulk-invalidates stale
// regions, and asks an upstream coordinator client to refresh on miss or
// stale-epoch feedback.
type MetaCache struct {
	coordinator coordinator.RegionLookupClient
	log         *logutil.Logger
	metrics     *Metrics

	mu struct {
		sync.RWMutex
		tree *btree.BTree
	}

	// refreshGroup deduplicates concurrent lookup-miss refreshes that would
	// otherwise all hit the coordinator for the same unknown range. Keyed by
	// unknownRangeKey, not by the literal requested key, so that distinct
	// keys inside the same not-yet-cached range share one refresh.
	refreshGroup singleflight.Group
}

// NewMetaCache constructs an empty cache backed by coord. A nil metrics
// defaults to an unregistered no-op set so callers that don't care about
// Prometheus don't need to construct one.
func NewMetaCache(coord coordinator.RegionLookupClient, log *logutil.Logger, metrics *Metrics) *MetaCache {
	if metrics == nil {
		metrics = noopMetrics()
	}
	mc := &MetaCache{coordinator: coord, log: log, metrics: metrics}
	mc.mu.tree = btree.New(32)
	return mc
}

// LookupRegionByKey returns the region owning key. On cache hit it returns
// immediately without taking the coordinator round trip. On miss it issues
// a ScanRegions(key, key⊕0x00, limit=1) to the coordinator, installs the
// result on success, and returns RegionNotFound (or the transport status)
// on failure. Concurrent misses for keys that resolve to the same unknown
// range are coalesced onto a single in-flight refresh.
func (mc *MetaCache) LookupRegionByKey(ctx context.Context, key []byte) (*kv.Region, Status) {
	if r := mc.getCached(key); r != nil {
		mc.metrics.CacheHits.Inc()
		return r, OK()
	}
	mc.metrics.CacheMisses.Inc()

	refreshKey := mc.unknownRangeKey(key)
	v, err, shared := mc.refreshGroup.Do(refreshKey, func() (interface{}, error) {
		regions, err := mc.coordinator.ScanRegions(ctx, key, keySuccessor(key), 1)
		if err != nil {
			return nil, err
		}
		if len(regions) == 0 {
			return nil, errRegionNotFound(key)
		}
		mc.install(regions[0])
		return regions[0], nil
	})
	if shared {
		mc.log.Debugw("coalesced region lookup onto in-flight refresh", "key", key)
	}
	if err != nil {
		if errors.Is(err, errRegionNotFoundSentinel) {
			return nil, RegionNotFound(err.Error())
		}
		return nil, Network(err.Error())
	}
	region := v.(*kv.Region)
	if !region.ContainsKey(key) {
		// The shared refresh resolved a different key in the same gap; scan
		// for this key on its own.
		regions, err := mc.coordinator.ScanRegions(ctx, key, keySuccessor(key), 1)
		if err != nil {
			return nil, Network(err.Error())
		}
		if len(regions) == 0 || !regions[0].ContainsKey(key) {
			return nil, RegionNotFound(errRegionNotFound(key).Error())
		}
		mc.install(regions[0])
		region = regions[0]
	}
	return region, OK()
}

// RefreshByID re-fetches regionID directly from the coordinator and
// installs the result, without going through a key scan. Controller.Call
// uses this for CodeEpochMismatch: the region still exists under the same
// ID, just with a newer epoch or leader, so GetRegionByID is the more
// direct refresh. CodeRegionNotFound has no such guarantee (the ID may
// have been retired by a split or merge), so that case still falls back
// to LookupRegionByKey.
func (mc *MetaCache) RefreshByID(ctx context.Context, regionID uint64) (*kv.Region, Status) {
	region, err := mc.coordinator.GetRegionByID(ctx, regionID)
	if err != nil {
		if errors.Is(err, errRegionNotFoundSentinel) {
			return nil, RegionNotFound(err.Error())
		}
		return nil, Network(err.Error())
	}
	if region == nil {
		return nil, RegionNotFound(fmt.Sprintf("region %d not found", regionID))
	}
	mc.install(region)
	return region, OK()
}

// unboundedRangeKey is the singleflight key used when a lookup misses with
// no cached predecessor at all, e.g. the very first lookups against a cold
// cache. All such misses share this one key so they coalesce onto a single
// refresh regardless of how far apart the requested keys are.
const unboundedRangeKey = "\x00unbounded"

// unknownRangeKey derives the singleflight key identifying the unknown
// range that key falls into, rather than key itself. Two distinct keys that
// land in the same gap between cached regions (or before the first cached
// region) must hash to the same key here, or concurrent misses for them
// never coalesce onto one refresh.
//
// Mirrors the teacher's makeLookupRequestKey, which keys a lookup request on
// the boundary of the nearest relevant cached descriptor (prevDesc.StartKey
// for a forward scan) rather than on the literal key being looked up. This
// cache keeps no stale-descriptor bookkeeping after eviction, so it uses the
// start key of the nearest still-cached predecessor region instead: every
// key that misses and shares that same predecessor falls in the same gap,
// and so shares the same refresh.
func (mc *MetaCache) unknownRangeKey(key []byte) string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	probe := &cacheEntry{region: &kv.Region{StartKey: key}}
	var prev *cacheEntry
	mc.mu.tree.DescendLessOrEqual(probe, func(i btree.Item) bool {
		prev = i.(*cacheEntry)
		return false
	})
	if prev == nil {
		return unboundedRangeKey
	}
	return fmt.Sprintf("%x", prev.region.StartKey)
}

// keySuccessor returns key⊕0x00, i.e. key with a zero byte appended, used as
// the exclusive end of a single-key region scan.
func keySuccessor(key []byte) []byte {
	out := make([]byte, len(key)+1)
	copy(out, key)
	return out
}

var errRegionNotFoundSentinel = errors.New("region not found")

func errRegionNotFound(key []byte) error {
	return errors.Wrapf(errRegionNotFoundSentinel, "no region covers key %x", key)
}

// getCached does a predecessor search on start-key followed by a
// containment check against the predecessor's range.
func (mc *MetaCache) getCached(key []byte) *kv.Region {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.getCachedLocked(key)
}

func (mc *MetaCache) getCachedLocked(key []byte) *kv.Region {
	probe := &cacheEntry{region: &kv.Region{StartKey: key}}
	var found *cacheEntry
	mc.mu.tree.DescendLessOrEqual(probe, func(i btree.Item) bool {
		found = i.(*cacheEntry)
		return false
	})
	if found == nil || !found.region.ContainsKey(key) {
		return nil
	}
	return found.region
}

// InvalidateRegion removes the cached entry for regionID if its cached
// epoch is not newer than observedEpoch (i.e. if the cache hasn't already
// moved on). Returns true if an entry was evicted, matching the REDESIGN
// FLAG resolution for "operations must return a well-defined status rather
// than silently succeeding with no observable result."
func (mc *MetaCache) InvalidateRegion(regionID uint64, observedEpoch kv.Epoch) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var toDelete *cacheEntry
	mc.mu.tree.Ascend(func(i btree.Item) bool {
		e := i.(*cacheEntry)
		if e.region.ID == regionID {
			toDelete = e
			return false
		}
		return true
	})
	if toDelete == nil {
		return false
	}
	if observedEpoch.Less(toDelete.region.Epoch) {
		// The cache already has something newer than what the caller saw;
		// don't evict out from under it.
		return false
	}
	mc.mu.tree.Delete(toDelete)
	mc.metrics.CacheEvicts.Inc()
	mc.log.Debugw("invalidated region", "region_id", regionID)
	return true
}

// OverlapInstall atomically replaces any cached region overlapping
// region.Range by region, but only if region's epoch is strictly greater
// than every overlapping cached entry's epoch.
func (mc *MetaCache) OverlapInstall(region *kv.Region) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.installLocked(region)
}

func (mc *MetaCache) install(region *kv.Region) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.installLocked(region)
}

func (mc *MetaCache) installLocked(region *kv.Region) {
	var overlapping []*cacheEntry
	allStrictlyOlder := true
	mc.mu.tree.Ascend(func(i btree.Item) bool {
		e := i.(*cacheEntry)
		if e.region.OverlapsRange(region.StartKey, region.EndKey) {
			overlapping = append(overlapping, e)
			if !e.region.Epoch.Less(region.Epoch) {
				allStrictlyOlder = false
			}
		}
		return true
	})
	if len(overlapping) > 0 && !allStrictlyOlder {
		// At least one overlapping cached entry is the same generation or
		// newer; don't evict it and don't install the incoming region.
		mc.log.Debugw("rejected stale or duplicate region install", "region_id", region.ID)
		return
	}
	for _, e := range overlapping {
		mc.mu.tree.Delete(e)
		mc.metrics.CacheEvicts.Inc()
	}
	// Clone before inserting: the cache must hold its own copy, never an
	// alias of a Region the caller (a coordinator response, a test fixture)
	// might still hold and mutate.
	mc.mu.tree.ReplaceOrInsert(&cacheEntry{region: region.Clone()})
}

// Clear removes every cached entry. Used by tests and by a hard topology
// reset.
func (mc *MetaCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.mu.tree = btree.New(32)
}

// Len reports the number of cached regions, used by tests.
func (mc *MetaCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.mu.tree.Len()
}

// Metrics returns the Prometheus metrics set mc was constructed with, so
// collaborators that receive a *MetaCache (e.g. the batch orchestrator's
// partition phase) can report against the same registered set rather than
// needing their own Metrics plumbed through separately.
func (mc *MetaCache) Metrics() *Metrics {
	return mc.metrics
}
