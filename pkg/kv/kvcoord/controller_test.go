package kvcoord

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lizhiqiangZetyun/dingo-store/internal/logutil"
	"github.com/lizhiqiangZetyun/dingo-store/internal/retry"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

type fakeRPC struct {
	method string
	ctx    RPCContext
}

func (r *fakeRPC) Method() string                 { return r.method }
func (r *fakeRPC) SetContext(c RPCContext)        { r.ctx = c }
func (r *fakeRPC) Request() interface{}           { return r }
func (r *fakeRPC) Reply() interface{}              { return r }

// scriptedTransport replays a fixed sequence of outcomes, one per SendNext
// call, so tests can drive the controller's retry state machine
// deterministically without a real network.
type scriptedTransport struct {
	outcomes []error
	calls    *int
}

func (t *scriptedTransport) IsExhausted() bool { return false }

func (t *scriptedTransport) SendNext(ctx context.Context, rpc StoreRPC) error {
	i := *t.calls
	*t.calls++
	if i >= len(t.outcomes) {
		return nil
	}
	return t.outcomes[i]
}

func (t *scriptedTransport) NextReplica() kv.Endpoint   { return kv.Endpoint{} }
func (t *scriptedTransport) MoveToFront(kv.Endpoint)    {}

func scriptedFactory(calls *int, outcomes ...error) TransportFactory {
	return func(replicas []kv.Endpoint, leaderIdx int) (Transport, error) {
		return &scriptedTransport{outcomes: outcomes, calls: calls}, nil
	}
}

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:       8,
		PerAttemptTimeout: 0,
		TotalDeadline:     2 * time.Second,
		InitialInterval:   time.Millisecond,
		MaxInterval:       5 * time.Millisecond,
	}
}

func TestController_Call_SucceedsFirstTry(t *testing.T) {
	var calls int
	cache := NewMetaCache(&fakeCoordinator{}, logutil.NewNop(), nil)
	ctrl := NewController(cache, scriptedFactory(&calls, nil), nil, logutil.NewNop(), fastPolicy())

	region := newTestRegion(1, []byte("a"), []byte("z"), 1, 1)
	status := ctrl.Call(context.Background(), &fakeRPC{method: "KvGet"}, region)

	require.True(t, status.IsOK())
	assert.Equal(t, 1, calls)
}

func TestController_Call_RetriesOnNetworkError(t *testing.T) {
	var calls int
	cache := NewMetaCache(&fakeCoordinator{}, logutil.NewNop(), nil)
	factory := scriptedFactory(&calls, Network("connection refused"), Network("connection refused"), nil)
	ctrl := NewController(cache, factory, nil, logutil.NewNop(), fastPolicy())

	region := newTestRegion(1, []byte("a"), []byte("z"), 1, 1)
	status := ctrl.Call(context.Background(), &fakeRPC{method: "KvGet"}, region)

	require.True(t, status.IsOK())
	assert.Equal(t, 3, calls)
}

func TestController_Call_FollowsLeaderHint(t *testing.T) {
	var calls int
	hint := kv.Endpoint{StoreID: 2, Addr: "store-2:1234"}
	cache := NewMetaCache(&fakeCoordinator{}, logutil.NewNop(), nil)
	factory := scriptedFactory(&calls, LeaderChanged(&hint), nil)
	ctrl := NewController(cache, factory, nil, logutil.NewNop(), fastPolicy())

	region := &kv.Region{
		ID: 1, StartKey: []byte("a"), EndKey: []byte("z"),
		Epoch: kv.Epoch{ConfVer: 1, Version: 1},
		Replicas: []kv.Endpoint{
			{StoreID: 1, Addr: "store-1:1234"},
			hint,
		},
		LeaderIdx: 0,
	}
	status := ctrl.Call(context.Background(), &fakeRPC{method: "KvGet"}, region)

	require.True(t, status.IsOK())
	assert.Equal(t, 2, calls)
}

func TestController_Call_RefreshesOnEpochMismatch(t *testing.T) {
	var calls int
	refreshed := newTestRegion(1, []byte("a"), []byte("z"), 1, 2)
	coord := &fakeCoordinator{regions: []*kv.Region{refreshed}}
	cache := NewMetaCache(coord, logutil.NewNop(), nil)

	factory := scriptedFactory(&calls, EpochMismatch("stale epoch"), nil)
	ctrl := NewController(cache, factory, nil, logutil.NewNop(), fastPolicy())

	stale := newTestRegion(1, []byte("a"), []byte("z"), 1, 1)
	status := ctrl.Call(context.Background(), &fakeRPC{method: "KvGet"}, stale)

	require.True(t, status.IsOK())
	assert.Equal(t, 2, calls)
}

func TestController_Call_ExhaustsRetryBudget(t *testing.T) {
	var calls int
	cache := NewMetaCache(&fakeCoordinator{}, logutil.NewNop(), nil)
	outcomes := make([]error, 10)
	for i := range outcomes {
		outcomes[i] = Network("connection refused")
	}
	factory := scriptedFactory(&calls, outcomes...)
	policy := fastPolicy()
	policy.MaxAttempts = 3
	ctrl := NewController(cache, factory, nil, logutil.NewNop(), policy)

	region := newTestRegion(1, []byte("a"), []byte("z"), 1, 1)
	status := ctrl.Call(context.Background(), &fakeRPC{method: "KvGet"}, region)

	assert.False(t, status.IsOK())
	assert.Equal(t, 3, calls)
}
