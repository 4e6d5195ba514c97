package kvcoord

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lizhiqiangZetyun/dingo-store/pkg/kv"
)

func TestStatus_Retryable(t *testing.T) {
	hint := kv.Endpoint{StoreID: 1, Addr: "s1"}
	cases := []struct {
		status    Status
		retryable bool
	}{
		{OK(), false},
		{NotFound("x"), false},
		{RegionNotFound("x"), true},
		{EpochMismatch("x"), true},
		{LeaderChanged(&hint), true},
		{Timeout("x"), true},
		{Network("x"), true},
		{IllegalState("x"), false},
		{InvalidArgument("x"), false},
		{Internal("x"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.retryable, c.status.Retryable(), c.status.Code.String())
	}
}

func TestStatus_Error(t *testing.T) {
	assert.Equal(t, "OK", OK().Error())
	assert.Equal(t, "NotFound: missing", NotFound("missing").Error())
}
