package rawkv

import "github.com/lizhiqiangZetyun/dingo-store/pkg/kv/kvcoord"

// This file defines the method-specific request/response wire shapes. In a
// production deployment these would be generated from protobuf definitions
// maintained outside this module, but the concrete Go types that carry them
// through this SDK's own call sites still need to exist somewhere; they
// live here as the one place that knows about each method's payload. Each
// type below satisfies kvcoord.StoreRPC directly, so the controller never
// needs to know which one it's holding; the orchestrator's processSubBatch*
// functions type-assert SubBatchState.RPC back to the concrete type.

type rpcContext struct {
	regionID  uint64
	confVer   uint64
	version   uint64
	requestID string
}

func (c *rpcContext) set(rc kvcoord.RPCContext) {
	c.regionID = rc.RegionID
	c.confVer = rc.RegionEpoch.ConfVer
	c.version = rc.RegionEpoch.Version
	c.requestID = rc.RequestID
}

// --- Get ---

type kvGetRequest struct {
	rpcContext
	Key []byte
}

type kvGetResponse struct {
	Value []byte
	Found bool
}

type kvGetRpc struct {
	req kvGetRequest
	resp kvGetResponse
}

func (r *kvGetRpc) Method() string                    { return "KvGet" }
func (r *kvGetRpc) SetContext(c kvcoord.RPCContext)    { r.req.set(c) }
func (r *kvGetRpc) Request() interface{}               { return &r.req }
func (r *kvGetRpc) Reply() interface{}                 { return &r.resp }

// --- BatchGet ---

type kvBatchGetRequest struct {
	rpcContext
	Keys [][]byte
}

type kvBatchGetResponse struct {
	Kvs []wireKV
}

type wireKV struct {
	Key   []byte
	Value []byte
}

type kvBatchGetRpc struct {
	req  kvBatchGetRequest
	resp kvBatchGetResponse
}

func (r *kvBatchGetRpc) Method() string                 { return "KvBatchGet" }
func (r *kvBatchGetRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvBatchGetRpc) Request() interface{}            { return &r.req }
func (r *kvBatchGetRpc) Reply() interface{}              { return &r.resp }

// --- Put ---

type kvPutRequest struct {
	rpcContext
	Key   []byte
	Value []byte
}

type kvPutResponse struct{}

type kvPutRpc struct {
	req  kvPutRequest
	resp kvPutResponse
}

func (r *kvPutRpc) Method() string                 { return "KvPut" }
func (r *kvPutRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvPutRpc) Request() interface{}            { return &r.req }
func (r *kvPutRpc) Reply() interface{}              { return &r.resp }

// --- BatchPut ---

type kvBatchPutRequest struct {
	rpcContext
	Kvs []wireKV
}

type kvBatchPutResponse struct{}

type kvBatchPutRpc struct {
	req  kvBatchPutRequest
	resp kvBatchPutResponse
}

func (r *kvBatchPutRpc) Method() string                 { return "KvBatchPut" }
func (r *kvBatchPutRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvBatchPutRpc) Request() interface{}            { return &r.req }
func (r *kvBatchPutRpc) Reply() interface{}              { return &r.resp }

// --- PutIfAbsent ---

type kvPutIfAbsentRequest struct {
	rpcContext
	Key   []byte
	Value []byte
}

type kvPutIfAbsentResponse struct {
	KeyState bool
}

type kvPutIfAbsentRpc struct {
	req  kvPutIfAbsentRequest
	resp kvPutIfAbsentResponse
}

func (r *kvPutIfAbsentRpc) Method() string                 { return "KvPutIfAbsent" }
func (r *kvPutIfAbsentRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvPutIfAbsentRpc) Request() interface{}            { return &r.req }
func (r *kvPutIfAbsentRpc) Reply() interface{}              { return &r.resp }

// --- BatchPutIfAbsent ---

type kvBatchPutIfAbsentRequest struct {
	rpcContext
	Kvs      []wireKV
	IsAtomic bool
}

type kvBatchPutIfAbsentResponse struct {
	KeyStates []bool
}

type kvBatchPutIfAbsentRpc struct {
	req  kvBatchPutIfAbsentRequest
	resp kvBatchPutIfAbsentResponse
}

func (r *kvBatchPutIfAbsentRpc) Method() string                 { return "KvBatchPutIfAbsent" }
func (r *kvBatchPutIfAbsentRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvBatchPutIfAbsentRpc) Request() interface{}            { return &r.req }
func (r *kvBatchPutIfAbsentRpc) Reply() interface{}              { return &r.resp }

// --- BatchDelete (also used for the single-key Delete, matching the
// original implementation's choice to send a one-element KvBatchDeleteRpc
// for Delete rather than a dedicated KvDeleteRpc) ---

type kvBatchDeleteRequest struct {
	rpcContext
	Keys [][]byte
}

type kvBatchDeleteResponse struct{}

type kvBatchDeleteRpc struct {
	req  kvBatchDeleteRequest
	resp kvBatchDeleteResponse
}

func (r *kvBatchDeleteRpc) Method() string                 { return "KvBatchDelete" }
func (r *kvBatchDeleteRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvBatchDeleteRpc) Request() interface{}            { return &r.req }
func (r *kvBatchDeleteRpc) Reply() interface{}              { return &r.resp }

// --- DeleteRange ---

type kvDeleteRangeRequest struct {
	rpcContext
	StartKey []byte
	EndKey   []byte
	WithStart bool
	WithEnd   bool
}

type kvDeleteRangeResponse struct {
	DeleteCount int64
}

type kvDeleteRangeRpc struct {
	req  kvDeleteRangeRequest
	resp kvDeleteRangeResponse
}

func (r *kvDeleteRangeRpc) Method() string                 { return "KvDeleteRange" }
func (r *kvDeleteRangeRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvDeleteRangeRpc) Request() interface{}            { return &r.req }
func (r *kvDeleteRangeRpc) Reply() interface{}              { return &r.resp }

// --- CompareAndSet ---

type kvCompareAndSetRequest struct {
	rpcContext
	Key           []byte
	Value         []byte
	ExpectedValue []byte
}

type kvCompareAndSetResponse struct {
	KeyState bool
}

type kvCompareAndSetRpc struct {
	req  kvCompareAndSetRequest
	resp kvCompareAndSetResponse
}

func (r *kvCompareAndSetRpc) Method() string                 { return "KvCompareAndSet" }
func (r *kvCompareAndSetRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvCompareAndSetRpc) Request() interface{}            { return &r.req }
func (r *kvCompareAndSetRpc) Reply() interface{}              { return &r.resp }

// --- BatchCompareAndSet ---

type kvBatchCompareAndSetRequest struct {
	rpcContext
	Kvs            []wireKV
	ExpectedValues [][]byte
}

type kvBatchCompareAndSetResponse struct {
	KeyStates []bool
}

type kvBatchCompareAndSetRpc struct {
	req  kvBatchCompareAndSetRequest
	resp kvBatchCompareAndSetResponse
}

func (r *kvBatchCompareAndSetRpc) Method() string                 { return "KvBatchCompareAndSet" }
func (r *kvBatchCompareAndSetRpc) SetContext(c kvcoord.RPCContext) { r.req.set(c) }
func (r *kvBatchCompareAndSetRpc) Request() interface{}            { return &r.req }
func (r *kvBatchCompareAndSetRpc) Reply() interface{}              { return &r.resp }
