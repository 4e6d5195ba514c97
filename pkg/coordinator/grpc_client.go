package coordinator

import (
	"context"

	"google.golang.org/grpc"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

// GRPCClient is the production RegionLookupClient, talking to the
// coordinator over a single long-lived connection. Like
// kvcoord.grpcTransport, it calls grpc.ClientConnInterface.Invoke directly
// with plain Go request/response structs instead of generated protobuf
// stubs: the wire codec that would marshal these onto the coordinator's
// actual RPC service is a concern for whoever generates those stubs, not
// this module, and Invoke's interface{} signature lets the rest of this
// client be written and typed exactly as it will look once that codec is
// wired in.
type GRPCClient struct {
	conn     grpc.ClientConnInterface
	fullName func(method string) string
}

// NewGRPCClient wraps an already-dialed connection to the coordinator.
// Callers own the connection's lifecycle (grpc.DialContext/Close).
func NewGRPCClient(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{
		conn:     conn,
		fullName: func(method string) string { return "/dingostore.Coordinator/" + method },
	}
}

type scanRegionsRequest struct {
	StartKey []byte
	EndKey   []byte
	Limit    int
}

type scanRegionsResponse struct {
	Regions []wireRegion
}

type getRegionByIDRequest struct {
	RegionID uint64
}

type getRegionByIDResponse struct {
	Region wireRegion
}

// wireRegion is the coordinator's over-the-wire region descriptor; it is
// translated to kv.Region at the edge of this package so the rest of the
// SDK never depends on the wire shape.
type wireRegion struct {
	ID         uint64
	StartKey   []byte
	EndKey     []byte
	ConfVer    uint64
	Version    uint64
	Replicas   []wireEndpoint
	LeaderIdx  int
}

type wireEndpoint struct {
	StoreID uint64
	Addr    string
}

func (w wireRegion) toRegion() *kv.Region {
	replicas := make([]kv.Endpoint, len(w.Replicas))
	for i, r := range w.Replicas {
		replicas[i] = kv.Endpoint{StoreID: r.StoreID, Addr: r.Addr}
	}
	return &kv.Region{
		ID:        w.ID,
		StartKey:  w.StartKey,
		EndKey:    w.EndKey,
		Epoch:     kv.Epoch{ConfVer: w.ConfVer, Version: w.Version},
		Replicas:  replicas,
		LeaderIdx: w.LeaderIdx,
	}
}

// ScanRegions implements RegionLookupClient.
func (c *GRPCClient) ScanRegions(ctx context.Context, startKey, endKey []byte, limit int) ([]*kv.Region, error) {
	req := &scanRegionsRequest{StartKey: startKey, EndKey: endKey, Limit: limit}
	resp := &scanRegionsResponse{}
	if err := c.conn.Invoke(ctx, c.fullName("ScanRegions"), req, resp); err != nil {
		return nil, err
	}
	regions := make([]*kv.Region, len(resp.Regions))
	for i, w := range resp.Regions {
		regions[i] = w.toRegion()
	}
	return regions, nil
}

// GetRegionByID implements RegionLookupClient.
func (c *GRPCClient) GetRegionByID(ctx context.Context, regionID uint64) (*kv.Region, error) {
	req := &getRegionByIDRequest{RegionID: regionID}
	resp := &getRegionByIDResponse{}
	if err := c.conn.Invoke(ctx, c.fullName("GetRegionByID"), req, resp); err != nil {
		return nil, err
	}
	return resp.Region.toRegion(), nil
}
