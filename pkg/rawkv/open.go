package rawkv

import (
	"context"

	"google.golang.org/grpc"

	"github.com/lizhiqiangZetyun/dingo-store/internal/logutil"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/coordinator"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv/kvcoord"
	"github.com/lizhiqiangZetyun/dingo-store/pkg/sdkconfig"
)

// storeDialer is the production kvcoord.Dialer: a bare grpc.DialContext per
// call. Every Dial opens a new connection; nothing is cached or reused
// across calls, and the transport does not close the connections it gets.
type storeDialer struct{}

func (storeDialer) Dial(ctx context.Context, endpoint kv.Endpoint) (grpc.ClientConnInterface, error) {
	return grpc.DialContext(ctx, endpoint.Addr, grpc.WithInsecure())
}

// Open dials the coordinator named by cfg and wires up a ready-to-use
// Client: a GRPCClient-backed MetaCache and a Controller built from cfg's
// retry policy. Callers that already have a coordinator.RegionLookupClient
// (tests, in-process fakes) should build the pieces directly instead --
// Open is the convenience path, not the only path.
//
// opts are applied on top of cfg (or sdkconfig.Default() if cfg is nil)
// before anything is dialed, so a caller can load a base file via
// sdkconfig.Load and still override a handful of fields programmatically:
//
//	rawkv.Open(cfg, log, sdkconfig.WithMaxAttempts(8))
func Open(cfg *sdkconfig.ClientConfig, log *logutil.Logger, opts ...sdkconfig.Option) (*Client, error) {
	if cfg == nil {
		cfg = sdkconfig.Default()
	}
	cfg.Apply(opts...)
	if log == nil {
		log = logutil.NewNop()
	}
	if len(cfg.Coordinator.Endpoints) == 0 {
		return nil, kvcoord.InvalidArgument("no coordinator endpoints configured")
	}

	conn, err := grpc.Dial(cfg.Coordinator.Endpoints[0], grpc.WithInsecure())
	if err != nil {
		return nil, err
	}
	coordClient := coordinator.NewGRPCClient(conn)

	metrics := kvcoord.NewMetrics(nil, "dingo_rawkv")
	cache := kvcoord.NewMetaCache(coordClient, log, metrics)
	transportFactory := kvcoord.NewGRPCTransportFactory(storeDialer{})
	ctrl := kvcoord.NewController(cache, transportFactory, metrics, log, cfg.RetryPolicy())

	return NewClient(cache, ctrl, log), nil
}
