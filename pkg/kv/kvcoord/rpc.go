package kvcoord

import "github.com/lizhiqiangZetyun/dingo-store/pkg/kv"

// RPCContext is stamped onto every store RPC before dispatch: the region
// id, its epoch (conf_ver, version), and a stable request id.
type RPCContext struct {
	RegionID   uint64
	RegionEpoch kv.Epoch
	RequestID  string
}

// StoreRPC is the generic shape every method-specific request/response pair
// (Get, Put, BatchGet, ...) must satisfy. The controller is generic over
// this interface and never downcasts to a concrete method type; each
// method's package (pkg/rawkv) owns the concrete wire shape. The
// orchestrator's per-method sub-batch functions in pkg/rawkv do type-assert
// SubBatchState.RPC back to the concrete type they built.
type StoreRPC interface {
	// Method returns the RPC's wire method name, used for logging and
	// dispatch over the generic transport.
	Method() string

	// SetContext stamps the per-call context (region id/epoch/request id)
	// onto the request before it is sent. Called before every attempt of a
	// Call: the request id is the same on every attempt (see the write-retry
	// idempotence REDESIGN FLAG in SPEC_FULL.md), while the region id and
	// epoch follow the latest refreshed region.
	SetContext(RPCContext)

	// Request and Reply return the concrete request/response values passed
	// to the transport. Both are opaque to the controller; marshaling them
	// onto the wire is a concern for whatever codec sits below Transport.
	Request() interface{}
	Reply() interface{}
}
