package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"contractiq/internal/model"
)

func testPolicy() Policy {
	return Policy{MaxAttempts: 3, Base: 10 * time.Second, Cap: 300 * time.Second}
}

func TestTransientFailureRetriesWithBackoff(t *testing.T) {
	p := testPolicy()

	d1 := p.Decide(model.KindTransient, 1)
	assert.True(t, d1.Retry)
	assert.Equal(t, 10*time.Second, d1.Delay)

	d2 := p.Decide(model.KindTransient, 2)
	assert.True(t, d2.Retry)
	assert.Equal(t, 20*time.Second, d2.Delay)
}

func TestTransientFailureOnFinalAttemptExhaustsRetries(t *testing.T) {
	d := testPolicy().Decide(model.KindTransient, 3)

	assert.False(t, d.Retry)
	assert.Equal(t, model.KindRetriesExhausted, d.FailKind)
}

func TestNonTransientFailuresNeverRetry(t *testing.T) {
	kinds := []model.ErrorKind{
		model.KindUnreadable,
		model.KindCorrupt,
		model.KindPermanent,
		model.KindMalformedResponse,
	}

	for _, kind := range kinds {
		d := testPolicy().Decide(kind, 1)
		assert.False(t, d.Retry, "kind %s should fail on first attempt", kind)
		assert.Equal(t, kind, d.FailKind)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	p := Policy{MaxAttempts: 20, Base: 10 * time.Second, Cap: 300 * time.Second}

	d := p.Decide(model.KindTransient, 10)
	assert.True(t, d.Retry)
	assert.Equal(t, 300*time.Second, d.Delay)
}

func TestBackoffDoesNotOverflowOnLargeAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 200, Base: time.Second, Cap: time.Minute}

	d := p.Decide(model.KindTransient, 150)
	assert.True(t, d.Retry)
	assert.Equal(t, time.Minute, d.Delay)
}
