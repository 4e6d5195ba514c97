package rawkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

func twoRegionStore() *fakeStore {
	return newFakeStore(
		&kv.Region{ID: 1, StartKey: []byte("a"), EndKey: []byte("m"),
			Epoch: kv.Epoch{ConfVer: 1, Version: 1}, Replicas: []kv.Endpoint{{StoreID: 1, Addr: "s1"}}, LeaderIdx: 0},
		&kv.Region{ID: 2, StartKey: []byte("m"), EndKey: nil,
			Epoch: kv.Epoch{ConfVer: 1, Version: 1}, Replicas: []kv.Endpoint{{StoreID: 2, Addr: "s2"}}, LeaderIdx: 0},
	)
}

func TestClient_PutGet_SingleKey(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()

	status := c.Put(ctx, []byte("apple"), []byte("1"))
	require.True(t, status.IsOK())

	v, status := c.Get(ctx, []byte("apple"))
	require.True(t, status.IsOK())
	assert.Equal(t, []byte("1"), v)
}

func TestClient_Get_MissingKeyIsNotFound(t *testing.T) {
	c := newTestClient(twoRegionStore())
	_, status := c.Get(context.Background(), []byte("nope"))
	assert.False(t, status.IsOK())
	assert.Equal(t, "NotFound", status.Code.String())
}

func TestClient_PutIfAbsent(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()

	applied, status := c.PutIfAbsent(ctx, []byte("apple"), []byte("1"))
	require.True(t, status.IsOK())
	assert.True(t, applied)

	applied2, status2 := c.PutIfAbsent(ctx, []byte("apple"), []byte("2"))
	require.True(t, status2.IsOK())
	assert.False(t, applied2)

	v, _ := c.Get(ctx, []byte("apple"))
	assert.Equal(t, []byte("1"), v)
}

func TestClient_CompareAndSet(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()
	require.True(t, c.Put(ctx, []byte("apple"), []byte("1")).IsOK())

	applied, status := c.CompareAndSet(ctx, []byte("apple"), []byte("2"), []byte("1"))
	require.True(t, status.IsOK())
	assert.True(t, applied)

	applied2, status2 := c.CompareAndSet(ctx, []byte("apple"), []byte("3"), []byte("wrong"))
	require.True(t, status2.IsOK())
	assert.False(t, applied2)

	v, _ := c.Get(ctx, []byte("apple"))
	assert.Equal(t, []byte("2"), v)
}

func TestClient_Delete(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()
	require.True(t, c.Put(ctx, []byte("apple"), []byte("1")).IsOK())

	require.True(t, c.Delete(ctx, []byte("apple")).IsOK())

	_, status := c.Get(ctx, []byte("apple"))
	assert.Equal(t, "NotFound", status.Code.String())
}

// BatchGet/BatchPut below exercise keys that land in both regions, proving
// the partition-by-region fan-out actually crosses a region boundary.
func TestClient_BatchPutThenBatchGet_SpansTwoRegions(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()

	kvs := []kv.KVPair{
		{Key: []byte("apple"), Value: []byte("1")},  // region 1
		{Key: []byte("banana"), Value: []byte("2")}, // region 1
		{Key: []byte("mango"), Value: []byte("3")},  // region 2
		{Key: []byte("zebra"), Value: []byte("4")},  // region 2
	}
	require.True(t, c.BatchPut(ctx, kvs).IsOK())

	got, status := c.BatchGet(ctx, [][]byte{
		[]byte("apple"), []byte("banana"), []byte("mango"), []byte("zebra"), []byte("missing"),
	})
	require.True(t, status.IsOK())
	assert.Len(t, got, 4)

	values := map[string]string{}
	for _, p := range got {
		values[string(p.Key)] = string(p.Value)
	}
	assert.Equal(t, "1", values["apple"])
	assert.Equal(t, "2", values["banana"])
	assert.Equal(t, "3", values["mango"])
	assert.Equal(t, "4", values["zebra"])
}

func TestClient_BatchPutIfAbsent(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()
	require.True(t, c.Put(ctx, []byte("apple"), []byte("1")).IsOK())

	states, status := c.BatchPutIfAbsent(ctx, []kv.KVPair{
		{Key: []byte("apple"), Value: []byte("new")}, // region 1, already present
		{Key: []byte("mango"), Value: []byte("3")},   // region 2, absent
	})
	require.True(t, status.IsOK())
	byKey := map[string]bool{}
	for _, s := range states {
		byKey[string(s.Key)] = s.Applied
	}
	assert.False(t, byKey["apple"])
	assert.True(t, byKey["mango"])
}

func TestClient_BatchDelete_SpansTwoRegions(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()
	require.True(t, c.BatchPut(ctx, []kv.KVPair{
		{Key: []byte("apple"), Value: []byte("1")},
		{Key: []byte("mango"), Value: []byte("2")},
	}).IsOK())

	require.True(t, c.BatchDelete(ctx, [][]byte{[]byte("apple"), []byte("mango")}).IsOK())

	_, s1 := c.Get(ctx, []byte("apple"))
	_, s2 := c.Get(ctx, []byte("mango"))
	assert.False(t, s1.IsOK())
	assert.False(t, s2.IsOK())
}

func TestClient_BatchCompareAndSet_ArityMismatchIsInvalidArgument(t *testing.T) {
	c := newTestClient(twoRegionStore())
	_, status := c.BatchCompareAndSet(context.Background(),
		[]kv.KVPair{{Key: []byte("apple"), Value: []byte("1")}},
		[][]byte{[]byte("1"), []byte("2")},
	)
	assert.False(t, status.IsOK())
	assert.Equal(t, "InvalidArgument", status.Code.String())
}

func TestClient_BatchCompareAndSet_AppliesPerKey(t *testing.T) {
	c := newTestClient(twoRegionStore())
	ctx := context.Background()
	require.True(t, c.Put(ctx, []byte("apple"), []byte("1")).IsOK())

	states, status := c.BatchCompareAndSet(ctx,
		[]kv.KVPair{
			{Key: []byte("apple"), Value: []byte("2")}, // matches expected
			{Key: []byte("mango"), Value: []byte("9")}, // absent, expects empty
		},
		[][]byte{[]byte("1"), nil},
	)
	require.True(t, status.IsOK())
	byKey := map[string]bool{}
	for _, s := range states {
		byKey[string(s.Key)] = s.Applied
	}
	assert.True(t, byKey["apple"])
	assert.True(t, byKey["mango"])

	v, _ := c.Get(ctx, []byte("apple"))
	assert.Equal(t, []byte("2"), v)
}
