package rawkv

import (
	"bytes"
	"context"
	"sync"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv/kvcoord"
)

// deleteRangeSpan is one region's slice of the walked [start, end) range,
// built while following the region chain from start to end.
type deleteRangeSpan struct {
	region    *kv.Region
	start     []byte
	withStart bool
	end       []byte
	withEnd   bool
}

// DeleteRange deletes every key in [start, end) (end exclusive unless
// withEnd, start inclusive unless !withStart), walking across however many
// regions the range spans and issuing one KvDeleteRange per region plus, if
// the caller's end is itself a region boundary and withEnd is set, a single
// compensating point Delete for that boundary key: a region's end_key is
// exclusive by construction, so an inclusive end sitting exactly on a
// boundary cannot be expressed inside any one region's KvDeleteRange
// request and must be deleted separately.
func (c *Client) DeleteRange(ctx context.Context, start, end []byte, withStart, withEnd bool) (int64, kvcoord.Status) {
	if bytes.Compare(start, end) >= 0 {
		return 0, kvcoord.IllegalState("start key must < end key")
	}

	spans, deleteEndKey, status := c.walkDeleteRange(ctx, start, end, withStart, withEnd)
	if !status.IsOK() {
		return 0, status
	}

	subs := make([]*SubBatchState, len(spans))
	for i, span := range spans {
		subs[i] = &SubBatchState{
			Region: span.region,
			RPC: &kvDeleteRangeRpc{req: kvDeleteRangeRequest{
				StartKey:  span.start,
				EndKey:    span.end,
				WithStart: span.withStart,
				WithEnd:   span.withEnd,
			}},
		}
	}

	var wg sync.WaitGroup
	wg.Add(len(subs))
	for _, sub := range subs {
		go func(sub *SubBatchState) {
			defer wg.Done()
			processSubBatchDeleteRange(ctx, c.ctrl, sub)
		}(sub)
	}

	var deleteCount int64
	result := kvcoord.OK()
	if deleteEndKey {
		if status := c.Delete(ctx, end); status.IsOK() {
			deleteCount++
		} else {
			result = status
		}
	}

	wg.Wait()

	for _, sub := range subs {
		if !sub.Status.IsOK() {
			c.log.Warnw("sub-batch rpc failed", "method", sub.RPC.Method(), "region_id", sub.Region.ID, "status", sub.Status.Error())
			if result.IsOK() {
				result = sub.Status
			}
			continue
		}
		deleteCount += sub.DeleteCount
	}

	return deleteCount, result
}

func processSubBatchDeleteRange(ctx context.Context, ctrl *kvcoord.Controller, sub *SubBatchState) {
	rpc := sub.RPC.(*kvDeleteRangeRpc)
	sub.Status = ctrl.Call(ctx, rpc, sub.Region)
	if sub.Status.IsOK() {
		sub.DeleteCount = rpc.resp.DeleteCount
	}
}

// walkDeleteRange follows the region chain from start to end, producing one
// deleteRangeSpan per region crossed. At each step it compares end against
// the current region's EndKey:
//   - end strictly inside the region: this region is the last one, its
//     span covers [cursor, end) with the caller's own withEnd.
//   - end strictly past the region's EndKey: this region's span covers
//     [cursor, region.EndKey) (end exclusive, since region.EndKey is never
//     itself part of this region), and the walk continues from
//     region.EndKey.
//   - end exactly on the region's EndKey: this region's span also stops at
//     region.EndKey, the walk terminates, and if the caller wanted end
//     inclusive, deleteEndKey is set so the caller issues one compensating
//     point delete instead of asking this region to delete a key it does
//     not own.
func (c *Client) walkDeleteRange(ctx context.Context, start, end []byte, withStart, withEnd bool) ([]deleteRangeSpan, bool, kvcoord.Status) {
	var spans []deleteRangeSpan
	deleteEndKey := false

	cursor := start
	cursorInclusive := withStart
	for {
		region, status := c.cache.LookupRegionByKey(ctx, cursor)
		if !status.IsOK() {
			return nil, false, status
		}

		cmp := -1
		if len(region.EndKey) != 0 {
			cmp = bytes.Compare(end, region.EndKey)
		}
		switch cmp {
		case -1:
			spans = append(spans, deleteRangeSpan{region: region, start: cursor, withStart: cursorInclusive, end: end, withEnd: withEnd})
			return spans, false, kvcoord.OK()

		case 1:
			spans = append(spans, deleteRangeSpan{region: region, start: cursor, withStart: cursorInclusive, end: region.EndKey, withEnd: false})
			cursor = region.EndKey
			cursorInclusive = true
			continue

		default: // end == region.EndKey
			spans = append(spans, deleteRangeSpan{region: region, start: cursor, withStart: cursorInclusive, end: end, withEnd: false})
			if withEnd {
				deleteEndKey = true
			}
			return spans, deleteEndKey, kvcoord.OK()
		}
	}
}
