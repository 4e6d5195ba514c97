// Package rawkv is the scatter/gather orchestrator: it sits behind the
// public Get/Put/BatchGet/.../DeleteRange operations, groups inputs by
// region using kvcoord.MetaCache, fans sub-requests out through
// kvcoord.Controller, and reduces per-region outcomes into a single
// user-facing result.
package rawkv

import (
	"context"

	"github.com/lizhiqiangZetyun/dingo-store/internal/logutil"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv/kvcoord"
)

// Client is the RawKV entry point, analogous to the original
// RawKV::RawKVImpl. It owns no state of its own beyond references to the
// shared MetaCache and Controller; every call is stateless beyond its own
// SubBatchState values.
type Client struct {
	cache *kvcoord.MetaCache
	ctrl  *kvcoord.Controller
	log   *logutil.Logger
}

// NewClient builds a Client over an already-constructed cache and
// controller (see Open for wiring these up from an sdkconfig.ClientConfig).
func NewClient(cache *kvcoord.MetaCache, ctrl *kvcoord.Controller, log *logutil.Logger) *Client {
	if log == nil {
		log = logutil.NewNop()
	}
	return &Client{cache: cache, ctrl: ctrl, log: log}
}

// Get follows the single-key template every method below shares: lookup
// region, construct the method RPC with {region_id, epoch} context,
// dispatch via the controller, extract fields on success. A missing key is
// a NotFound Status, not an empty value.
func (c *Client) Get(ctx context.Context, key []byte) ([]byte, kvcoord.Status) {
	region, status := c.cache.LookupRegionByKey(ctx, key)
	if !status.IsOK() {
		return nil, status
	}

	rpc := &kvGetRpc{req: kvGetRequest{Key: key}}
	status = c.ctrl.Call(ctx, rpc, region)
	if !status.IsOK() {
		return nil, status
	}
	if !rpc.resp.Found {
		return nil, kvcoord.NotFound("key not found")
	}
	return rpc.resp.Value, kvcoord.OK()
}

// Put follows the same single-key template as Get.
func (c *Client) Put(ctx context.Context, key, value []byte) kvcoord.Status {
	region, status := c.cache.LookupRegionByKey(ctx, key)
	if !status.IsOK() {
		return status
	}
	rpc := &kvPutRpc{req: kvPutRequest{Key: key, Value: value}}
	return c.ctrl.Call(ctx, rpc, region)
}

// PutIfAbsent writes value for key only if key is currently absent,
// returning whether the write applied.
func (c *Client) PutIfAbsent(ctx context.Context, key, value []byte) (bool, kvcoord.Status) {
	region, status := c.cache.LookupRegionByKey(ctx, key)
	if !status.IsOK() {
		return false, status
	}
	rpc := &kvPutIfAbsentRpc{req: kvPutIfAbsentRequest{Key: key, Value: value}}
	status = c.ctrl.Call(ctx, rpc, region)
	if !status.IsOK() {
		return false, status
	}
	return rpc.resp.KeyState, kvcoord.OK()
}

// Delete follows the original's choice of sending a one-element
// KvBatchDeleteRpc rather than a dedicated KvDeleteRpc.
func (c *Client) Delete(ctx context.Context, key []byte) kvcoord.Status {
	region, status := c.cache.LookupRegionByKey(ctx, key)
	if !status.IsOK() {
		return status
	}
	rpc := &kvBatchDeleteRpc{req: kvBatchDeleteRequest{Keys: [][]byte{key}}}
	status = c.ctrl.Call(ctx, rpc, region)
	if !status.IsOK() {
		c.log.Warnw("rpc failed", "method", rpc.Method(), "region_id", region.ID, "status", status.Error())
	}
	return status
}

// CompareAndSet writes value for key only if key's current value equals
// expected, returning whether the write applied.
func (c *Client) CompareAndSet(ctx context.Context, key, value, expected []byte) (bool, kvcoord.Status) {
	region, status := c.cache.LookupRegionByKey(ctx, key)
	if !status.IsOK() {
		return false, status
	}
	rpc := &kvCompareAndSetRpc{req: kvCompareAndSetRequest{Key: key, Value: value, ExpectedValue: expected}}
	status = c.ctrl.Call(ctx, rpc, region)
	if !status.IsOK() {
		return false, status
	}
	return rpc.resp.KeyState, kvcoord.OK()
}

// --- BatchGet ---

func (c *Client) BatchGet(ctx context.Context, keys [][]byte) ([]kv.KVPair, kvcoord.Status) {
	pr, status := partitionByRegion(ctx, c.cache, keys, func(k []byte) []byte { return k })
	if !status.IsOK() {
		return nil, status
	}

	subs := make([]*SubBatchState, len(pr.order))
	for i, regionID := range pr.order {
		region := pr.regions[regionID]
		subs[i] = &SubBatchState{
			Region: region,
			RPC:    &kvBatchGetRpc{req: kvBatchGetRequest{Keys: pr.items[regionID]}},
		}
	}

	runSubBatches(ctx, c.ctrl, subs, processSubBatchGet)

	var out []kv.KVPair
	for _, sub := range subs {
		if sub.Status.IsOK() {
			out = append(out, sub.ResultKVs...)
		}
	}
	return out, reduceStatus(c.log, subs)
}

func processSubBatchGet(ctx context.Context, ctrl *kvcoord.Controller, sub *SubBatchState) {
	rpc := sub.RPC.(*kvBatchGetRpc)
	sub.Status = ctrl.Call(ctx, rpc, sub.Region)
	if sub.Status.IsOK() {
		for _, kvp := range rpc.resp.Kvs {
			sub.ResultKVs = append(sub.ResultKVs, kv.KVPair{Key: kvp.Key, Value: kvp.Value})
		}
	}
}

// --- BatchPut ---

func (c *Client) BatchPut(ctx context.Context, kvs []kv.KVPair) kvcoord.Status {
	pr, status := partitionByRegion(ctx, c.cache, kvs, func(p kv.KVPair) []byte { return p.Key })
	if !status.IsOK() {
		return status
	}

	subs := make([]*SubBatchState, len(pr.order))
	for i, regionID := range pr.order {
		region := pr.regions[regionID]
		subs[i] = &SubBatchState{
			Region: region,
			RPC:    &kvBatchPutRpc{req: kvBatchPutRequest{Kvs: toWirePairs(pr.items[regionID])}},
		}
	}

	runSubBatches(ctx, c.ctrl, subs, processSubBatchPut)
	return reduceStatus(c.log, subs)
}

func processSubBatchPut(ctx context.Context, ctrl *kvcoord.Controller, sub *SubBatchState) {
	rpc := sub.RPC.(*kvBatchPutRpc)
	sub.Status = ctrl.Call(ctx, rpc, sub.Region)
}

// --- BatchPutIfAbsent ---

func (c *Client) BatchPutIfAbsent(ctx context.Context, kvs []kv.KVPair) ([]kv.KeyOpState, kvcoord.Status) {
	pr, status := partitionByRegion(ctx, c.cache, kvs, func(p kv.KVPair) []byte { return p.Key })
	if !status.IsOK() {
		return nil, status
	}

	subs := make([]*SubBatchState, len(pr.order))
	for i, regionID := range pr.order {
		region := pr.regions[regionID]
		subs[i] = &SubBatchState{
			Region: region,
			RPC: &kvBatchPutIfAbsentRpc{req: kvBatchPutIfAbsentRequest{
				Kvs:      toWirePairs(pr.items[regionID]),
				IsAtomic: true, // atomic within this region: all keys apply or none do
			}},
		}
	}

	runSubBatches(ctx, c.ctrl, subs, processSubBatchPutIfAbsent)

	var out []kv.KeyOpState
	for _, sub := range subs {
		if sub.Status.IsOK() {
			out = append(out, sub.KeyOpStates...)
		}
	}
	return out, reduceStatus(c.log, subs)
}

func processSubBatchPutIfAbsent(ctx context.Context, ctrl *kvcoord.Controller, sub *SubBatchState) {
	rpc := sub.RPC.(*kvBatchPutIfAbsentRpc)
	sub.Status = ctrl.Call(ctx, rpc, sub.Region)
	if !sub.Status.IsOK() {
		return
	}
	if len(rpc.resp.KeyStates) != len(rpc.req.Kvs) {
		sub.Status = kvcoord.Internal("key_states size does not match request kvs size")
		return
	}
	for i, kvp := range rpc.req.Kvs {
		sub.KeyOpStates = append(sub.KeyOpStates, kv.KeyOpState{Key: kvp.Key, Applied: rpc.resp.KeyStates[i]})
	}
}

// --- BatchDelete ---

func (c *Client) BatchDelete(ctx context.Context, keys [][]byte) kvcoord.Status {
	pr, status := partitionByRegion(ctx, c.cache, keys, func(k []byte) []byte { return k })
	if !status.IsOK() {
		return status
	}

	subs := make([]*SubBatchState, len(pr.order))
	for i, regionID := range pr.order {
		region := pr.regions[regionID]
		subs[i] = &SubBatchState{
			Region: region,
			RPC:    &kvBatchDeleteRpc{req: kvBatchDeleteRequest{Keys: pr.items[regionID]}},
		}
	}

	runSubBatches(ctx, c.ctrl, subs, processSubBatchDelete)
	return reduceStatus(c.log, subs)
}

func processSubBatchDelete(ctx context.Context, ctrl *kvcoord.Controller, sub *SubBatchState) {
	rpc := sub.RPC.(*kvBatchDeleteRpc)
	sub.Status = ctrl.Call(ctx, rpc, sub.Region)
}

// --- BatchCompareAndSet ---

type compareAndSetItem struct {
	kv       kv.KVPair
	expected []byte
}

func (c *Client) BatchCompareAndSet(ctx context.Context, kvs []kv.KVPair, expectedValues [][]byte) ([]kv.KeyOpState, kvcoord.Status) {
	if len(kvs) != len(expectedValues) {
		return nil, kvcoord.InvalidArgument("kvs size must equal expected_values size")
	}

	items := make([]compareAndSetItem, len(kvs))
	for i := range kvs {
		items[i] = compareAndSetItem{kv: kvs[i], expected: expectedValues[i]}
	}

	pr, status := partitionByRegion(ctx, c.cache, items, func(it compareAndSetItem) []byte { return it.kv.Key })
	if !status.IsOK() {
		return nil, status
	}

	subs := make([]*SubBatchState, len(pr.order))
	for i, regionID := range pr.order {
		region := pr.regions[regionID]
		group := pr.items[regionID]
		req := kvBatchCompareAndSetRequest{
			Kvs:            make([]wireKV, len(group)),
			ExpectedValues: make([][]byte, len(group)),
		}
		for j, it := range group {
			req.Kvs[j] = wireKV{Key: it.kv.Key, Value: it.kv.Value}
			req.ExpectedValues[j] = it.expected
		}
		subs[i] = &SubBatchState{
			Region: region,
			RPC:    &kvBatchCompareAndSetRpc{req: req},
		}
	}

	runSubBatches(ctx, c.ctrl, subs, processSubBatchCompareAndSet)

	var out []kv.KeyOpState
	for _, sub := range subs {
		if sub.Status.IsOK() {
			out = append(out, sub.KeyOpStates...)
		}
	}
	return out, reduceStatus(c.log, subs)
}

func processSubBatchCompareAndSet(ctx context.Context, ctrl *kvcoord.Controller, sub *SubBatchState) {
	rpc := sub.RPC.(*kvBatchCompareAndSetRpc)
	sub.Status = ctrl.Call(ctx, rpc, sub.Region)
	if !sub.Status.IsOK() {
		return
	}
	if len(rpc.resp.KeyStates) != len(rpc.req.Kvs) {
		sub.Status = kvcoord.Internal("key_states size does not match request kvs size")
		return
	}
	for i, kvp := range rpc.req.Kvs {
		sub.KeyOpStates = append(sub.KeyOpStates, kv.KeyOpState{Key: kvp.Key, Applied: rpc.resp.KeyStates[i]})
	}
}

func toWirePairs(kvs []kv.KVPair) []wireKV {
	out := make([]wireKV, len(kvs))
	for i, p := range kvs {
		out[i] = wireKV{Key: p.Key, Value: p.Value}
	}
	return out
}
