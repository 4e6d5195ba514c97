package kvcoord

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

// Transport sends a single StoreRPC to one or more replicas of a region,
// tracking which have already been tried. All calls to a Transport are
// made from a single goroutine, so implementations need not be
// thread-safe, mirroring the teacher's Transport contract in transport.go.
type Transport interface {
	// IsExhausted returns true if there are no more replicas to try.
	IsExhausted() bool

	// SendNext synchronously sends rpc to the next replica. rpc's Reply is
	// populated on success; on error it may be partially populated and
	// must not be consumed by the caller.
	SendNext(ctx context.Context, rpc StoreRPC) error

	// NextReplica returns the replica that the next SendNext call will
	// target. Returns the zero Endpoint if the transport is exhausted.
	NextReplica() kv.Endpoint

	// MoveToFront relocates replica to the front of the try order, used
	// when a LeaderChanged hint names a specific replica to retry against
	// next.
	MoveToFront(replica kv.Endpoint)
}

// Dialer resolves a replica endpoint to a gRPC channel. The transports built
// by NewGRPCTransportFactory call Dial on every SendNext and keep no
// connection cache of their own; any reuse is up to the Dialer.
type Dialer interface {
	Dial(ctx context.Context, endpoint kv.Endpoint) (grpc.ClientConnInterface, error)
}

// TransportFactory builds a Transport for one region's replica set. It is
// the abstract RPC channel factory seam: the only production implementation
// it ships is NewGRPCTransportFactory; tests supply their own.
type TransportFactory func(replicas []kv.Endpoint, leaderIdx int) (Transport, error)

// NewGRPCTransportFactory returns a TransportFactory that dispatches over
// gRPC, dialing lazily through dialer. It orders replicas leader-first by
// swapping replicas[leaderIdx] (when in range) with replicas[0]; the
// replica displaced from the front takes the leader's old slot and the rest
// keep their positions. SendNext then walks that order once.
func NewGRPCTransportFactory(dialer Dialer) TransportFactory {
	return func(replicas []kv.Endpoint, leaderIdx int) (Transport, error) {
		if len(replicas) == 0 {
			return nil, errors.New("no replicas to build a transport for")
		}
		ordered := make([]kv.Endpoint, len(replicas))
		copy(ordered, replicas)
		if leaderIdx >= 0 && leaderIdx < len(ordered) {
			ordered[0], ordered[leaderIdx] = ordered[leaderIdx], ordered[0]
		}
		return &grpcTransport{dialer: dialer, ordered: ordered}, nil
	}
}

type grpcTransport struct {
	dialer  Dialer
	ordered []kv.Endpoint
	index   int
}

func (t *grpcTransport) IsExhausted() bool {
	return t.index >= len(t.ordered)
}

// SendNext dials (or reuses) a channel to the next replica and issues the
// RPC via the generic Invoke path. The concrete request/response types are
// opaque to this package; marshaling them over gRPC is handled by whatever
// codec is registered on the connection -- this package only owns replica
// ordering and retry sequencing, not bytes on the wire.
func (t *grpcTransport) SendNext(ctx context.Context, rpc StoreRPC) error {
	if t.IsExhausted() {
		return errors.New("transport exhausted: no replicas left to try")
	}
	replica := t.ordered[t.index]
	t.index++

	conn, err := t.dialer.Dial(ctx, replica)
	if err != nil {
		return errors.Wrapf(err, "dialing replica %+v", replica)
	}
	fullMethod := "/dingostore.Store/" + rpc.Method()
	return conn.Invoke(ctx, fullMethod, rpc.Request(), rpc.Reply())
}

func (t *grpcTransport) NextReplica() kv.Endpoint {
	if t.IsExhausted() {
		return kv.Endpoint{}
	}
	return t.ordered[t.index]
}

func (t *grpcTransport) MoveToFront(replica kv.Endpoint) {
	for i := range t.ordered {
		if t.ordered[i] == replica {
			if i < t.index {
				// Already tried; make it eligible again by rewinding past it.
				t.index--
			}
			t.ordered[i], t.ordered[t.index] = t.ordered[t.index], t.ordered[i]
			return
		}
	}
}
