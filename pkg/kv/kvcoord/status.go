package kvcoord

import (
	"fmt"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

// Code is the tag of a Status sum type. Every RPC, cache lookup and
// orchestrator operation reports one of these so callers can decide locally
// whether to retry, refresh topology, or surface the failure.
type Code int

const (
	CodeOK Code = iota
	CodeNotFound
	CodeRegionNotFound
	CodeEpochMismatch
	CodeLeaderChanged
	CodeTimeout
	CodeNetwork
	CodeIllegalState
	CodeInvalidArgument
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeNotFound:
		return "NotFound"
	case CodeRegionNotFound:
		return "RegionNotFound"
	case CodeEpochMismatch:
		return "EpochMismatch"
	case CodeLeaderChanged:
		return "LeaderChanged"
	case CodeTimeout:
		return "Timeout"
	case CodeNetwork:
		return "Network"
	case CodeIllegalState:
		return "IllegalState"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Status is a tagged variant carrying enough context for local retry
// decisions. It implements error so it can be wrapped/inspected with
// github.com/cockroachdb/errors at logging boundaries, but callers that want
// to branch on the outcome should inspect Code rather than string-match.
type Status struct {
	Code Code
	// Msg carries the detail for IllegalState/InvalidArgument/Internal and a
	// human-readable description for the rest.
	Msg string
	// LeaderHint is set for CodeLeaderChanged when the server told us who it
	// believes the new leader is.
	LeaderHint *kv.Endpoint
}

func OK() Status { return Status{Code: CodeOK} }

func (s Status) IsOK() bool { return s.Code == CodeOK }

func (s Status) Error() string {
	if s.Msg == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Msg)
}

func NotFound(msg string) Status         { return Status{Code: CodeNotFound, Msg: msg} }
func RegionNotFound(msg string) Status   { return Status{Code: CodeRegionNotFound, Msg: msg} }
func EpochMismatch(msg string) Status    { return Status{Code: CodeEpochMismatch, Msg: msg} }
func Timeout(msg string) Status          { return Status{Code: CodeTimeout, Msg: msg} }
func Network(msg string) Status          { return Status{Code: CodeNetwork, Msg: msg} }
func IllegalState(msg string) Status     { return Status{Code: CodeIllegalState, Msg: msg} }
func InvalidArgument(msg string) Status  { return Status{Code: CodeInvalidArgument, Msg: msg} }
func Internal(msg string) Status         { return Status{Code: CodeInternal, Msg: msg} }

func LeaderChanged(hint *kv.Endpoint) Status {
	return Status{Code: CodeLeaderChanged, LeaderHint: hint}
}

// Retryable reports whether Controller should itself retry the call rather
// than surface it to the orchestrator. CodeLeaderChanged, CodeEpochMismatch
// and CodeRegionNotFound are retryable but also need Controller to update
// its view of the topology first (new leader, refreshed region); Controller
// handles those with dedicated branches and consults Retryable only for the
// codes that need a bare backoff-and-retry with no other side effect.
func (s Status) Retryable() bool {
	switch s.Code {
	case CodeLeaderChanged, CodeEpochMismatch, CodeRegionNotFound, CodeNetwork, CodeTimeout:
		return true
	default:
		return false
	}
}
