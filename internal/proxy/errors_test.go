package proxy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify_GRPCCodes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  Kind
		retryable bool
	}{
		{"unavailable is unreachable", status.Error(codes.Unavailable, "conn refused"), KindUnreachable, true},
		{"deadline is timeout", status.Error(codes.DeadlineExceeded, "too slow"), KindTimeout, true},
		{"unimplemented is unsupported", status.Error(codes.Unimplemented, "no such rpc"), KindUnsupported, false},
		{"other codes are rejected", status.Error(codes.InvalidArgument, "bad account"), KindRejected, false},
		{"context deadline is timeout", context.DeadlineExceeded, KindTimeout, true},
		{"plain error is rejected", errors.New("weird"), KindRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.retryable, got.Retryable())
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&Error{Kind: KindTimeout}))
	assert.False(t, IsRetryable(&Error{Kind: KindRejected}))
	assert.False(t, IsRetryable(errors.New("unwrapped")))
}

func TestIsAlreadyExists_And_IsNotFound(t *testing.T) {
	assert.True(t, isAlreadyExists(status.Error(codes.Unknown, "User user_7@xray.com already exists.")))
	assert.False(t, isAlreadyExists(status.Error(codes.Unknown, "some other failure")))
	assert.False(t, isAlreadyExists(nil))

	assert.True(t, isNotFound(status.Error(codes.Unknown, "User user_7@xray.com not found.")))
	assert.False(t, isNotFound(status.Error(codes.Unknown, "rejected")))
	assert.False(t, isNotFound(nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "unreachable", KindUnreachable.String())
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "rejected", KindRejected.String())
	assert.Equal(t, "unsupported", KindUnsupported.String())
}
