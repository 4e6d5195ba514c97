package rawkv

import (
	"bytes"
	"context"
	"sync"

	"github.com/lizhiqiangZetyun/dingo-store/internal/logutil"
	"github.com/lizhiqiangZetyun/dingo-store/internal/retry"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv/kvcoord"
)

// fakeStore is an in-memory, region-sharded key/value table plus a fake
// coordinator and transport factory over it, used so the orchestrator's
// partition/dispatch/reduce logic can be exercised without a network.
// Grounded on the teacher's testDescriptorDB fake (an in-process stand-in
// for the real coordinator, driven directly by test setup).
type fakeStore struct {
	mu      sync.Mutex
	regions []*kv.Region
	data    map[uint64]map[string][]byte
}

func newFakeStore(regions ...*kv.Region) *fakeStore {
	data := make(map[uint64]map[string][]byte, len(regions))
	for _, r := range regions {
		data[r.ID] = make(map[string][]byte)
	}
	return &fakeStore{regions: regions, data: data}
}

func (s *fakeStore) ScanRegions(ctx context.Context, startKey, endKey []byte, limit int) ([]*kv.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.ContainsKey(startKey) {
			return []*kv.Region{r}, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetRegionByID(ctx context.Context, regionID uint64) (*kv.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.ID == regionID {
			return r, nil
		}
	}
	return nil, nil
}

// transportFactory returns a kvcoord.TransportFactory whose Transport
// interprets each StoreRPC directly against s.data, keyed by the region id
// stamped into the RPC's context by Controller.Call.
func (s *fakeStore) transportFactory() kvcoord.TransportFactory {
	return func(replicas []kv.Endpoint, leaderIdx int) (kvcoord.Transport, error) {
		return &fakeTransport{store: s}, nil
	}
}

type fakeTransport struct {
	store *fakeStore
}

func (t *fakeTransport) IsExhausted() bool          { return false }
func (t *fakeTransport) NextReplica() kv.Endpoint   { return kv.Endpoint{} }
func (t *fakeTransport) MoveToFront(kv.Endpoint)    {}

func (t *fakeTransport) SendNext(ctx context.Context, rpc kvcoord.StoreRPC) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	switch r := rpc.(type) {
	case *kvGetRpc:
		table := t.store.data[r.req.regionID]
		v, ok := table[string(r.req.Key)]
		r.resp = kvGetResponse{Value: v, Found: ok}

	case *kvBatchGetRpc:
		table := t.store.data[r.req.regionID]
		var out []wireKV
		for _, k := range r.req.Keys {
			if v, ok := table[string(k)]; ok {
				out = append(out, wireKV{Key: k, Value: v})
			}
		}
		r.resp = kvBatchGetResponse{Kvs: out}

	case *kvPutRpc:
		table := t.store.data[r.req.regionID]
		table[string(r.req.Key)] = r.req.Value

	case *kvBatchPutRpc:
		table := t.store.data[r.req.regionID]
		for _, kvp := range r.req.Kvs {
			table[string(kvp.Key)] = kvp.Value
		}

	case *kvPutIfAbsentRpc:
		table := t.store.data[r.req.regionID]
		_, exists := table[string(r.req.Key)]
		if !exists {
			table[string(r.req.Key)] = r.req.Value
		}
		r.resp = kvPutIfAbsentResponse{KeyState: !exists}

	case *kvBatchPutIfAbsentRpc:
		table := t.store.data[r.req.regionID]
		states := make([]bool, len(r.req.Kvs))
		for i, kvp := range r.req.Kvs {
			_, exists := table[string(kvp.Key)]
			if !exists {
				table[string(kvp.Key)] = kvp.Value
			}
			states[i] = !exists
		}
		r.resp = kvBatchPutIfAbsentResponse{KeyStates: states}

	case *kvBatchDeleteRpc:
		table := t.store.data[r.req.regionID]
		for _, k := range r.req.Keys {
			delete(table, string(k))
		}

	case *kvCompareAndSetRpc:
		table := t.store.data[r.req.regionID]
		cur, ok := table[string(r.req.Key)]
		matches := (!ok && len(r.req.ExpectedValue) == 0) || (ok && bytes.Equal(cur, r.req.ExpectedValue))
		if matches {
			table[string(r.req.Key)] = r.req.Value
		}
		r.resp = kvCompareAndSetResponse{KeyState: matches}

	case *kvBatchCompareAndSetRpc:
		table := t.store.data[r.req.regionID]
		states := make([]bool, len(r.req.Kvs))
		for i, kvp := range r.req.Kvs {
			cur, ok := table[string(kvp.Key)]
			expected := r.req.ExpectedValues[i]
			matches := (!ok && len(expected) == 0) || (ok && bytes.Equal(cur, expected))
			if matches {
				table[string(kvp.Key)] = kvp.Value
			}
			states[i] = matches
		}
		r.resp = kvBatchCompareAndSetResponse{KeyStates: states}

	case *kvDeleteRangeRpc:
		table := t.store.data[r.req.regionID]
		var count int64
		for k := range table {
			key := []byte(k)
			if key2StartOK(key, r.req.StartKey, r.req.WithStart) && key2EndOK(key, r.req.EndKey, r.req.WithEnd) {
				delete(table, k)
				count++
			}
		}
		r.resp = kvDeleteRangeResponse{DeleteCount: count}
	}
	return nil
}

func key2StartOK(key, start []byte, withStart bool) bool {
	c := bytes.Compare(key, start)
	if withStart {
		return c >= 0
	}
	return c > 0
}

func key2EndOK(key, end []byte, withEnd bool) bool {
	if len(end) == 0 {
		return true
	}
	c := bytes.Compare(key, end)
	if withEnd {
		return c <= 0
	}
	return c < 0
}

func newTestClient(store *fakeStore) *Client {
	cache := kvcoord.NewMetaCache(store, logutil.NewNop(), nil)
	policy := retry.Policy{
		MaxAttempts:       4,
		PerAttemptTimeout: 0,
		TotalDeadline:     0,
		InitialInterval:   0,
		MaxInterval:       0,
	}
	ctrl := kvcoord.NewController(cache, store.transportFactory(), nil, logutil.NewNop(), policy)
	return NewClient(cache, ctrl, logutil.NewNop())
}
