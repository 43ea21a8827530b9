package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), KindInternal},
		{"classified", New(KindNotFound, "post not found"), KindNotFound},
		{"wrapped cause", Wrap(KindWorkerUnreachable, "offline", cause), KindWorkerUnreachable},
		{"fmt wrapped", fmt.Errorf("ask: %w", New(KindNotReady, "later")), KindNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestError_UnwrapAndDetail(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := Wrap(KindWorkerTimeout, "AI timed out", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "deadline exceeded", err.Detail())
	assert.Equal(t, "", New(KindInvalid, "bad").Detail())
	assert.Contains(t, err.Error(), "worker_timeout")
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(KindNotReady))
	assert.True(t, Retryable(KindWorkerTimeout))
	assert.False(t, Retryable(KindWorkerError))
	assert.False(t, Retryable(KindDuplicateKey))
}
