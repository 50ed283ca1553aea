package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrorUnwrap(t *testing.T) {
	inner := errors.New("TIN lookup timed out")
	err := NewStageError("Validation", inner)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Validation", se.Stage)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "Validation")
}

func TestIsTransmissionError(t *testing.T) {
	te := &TransmissionError{Err: errors.New("gateway 502")}
	wrapped := fmt.Errorf("filing stage: %w", te)

	assert.True(t, IsTransmissionError(te))
	assert.True(t, IsTransmissionError(wrapped))
	assert.False(t, IsTransmissionError(errors.New("gateway 502")))
	assert.False(t, IsTransmissionError(NewStageError("Filing", errors.New("bad data"))))
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryNeverRetriesTransmission(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return &TransmissionError{Err: errors.New("submitted but no ack")}
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Millisecond})

	assert.True(t, IsTransmissionError(err))
	assert.Equal(t, 1, attempts)
}

func TestWithRetryHonorsNonRetryable(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return &RetryableError{Err: errors.New("permanent"), Retryable: false}
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Millisecond})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	err := WithRetry(context.Background(), func() error {
		return errors.New("always failing")
	}, RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})

	assert.ErrorIs(t, err, ErrMaxRetries)
}
