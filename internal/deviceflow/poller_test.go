package deviceflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns one PollResult per call, repeating the last entry
// once the script runs out. It records the time of each call so tests can
// assert on pacing.
type scriptedClient struct {
	mu      sync.Mutex
	script  []PollResult
	calls   int
	callsAt []time.Time
}

func (c *scriptedClient) PollOnce(ctx context.Context, deviceCode string) PollResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callsAt = append(c.callsAt, time.Now())
	idx := c.calls
	c.calls++
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	return c.script[idx]
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestPoller_PendingThenApproved(t *testing.T) {
	client := &scriptedClient{script: []PollResult{
		{Outcome: OutcomePending},
		{Outcome: OutcomePending},
		{Outcome: OutcomePending},
		{Outcome: OutcomeApproved, AccessToken: "gho_token"},
	}}

	poller := NewPoller(client)
	status, token, err := poller.Run(context.Background(), "dc-1",
		5*time.Millisecond, time.Second, time.Second)

	require.NoError(t, err)
	assert.Equal(t, PollApproved, status)
	assert.Equal(t, "gho_token", token)
	assert.Equal(t, 4, client.callCount(), "approval must stop the loop immediately")
}

func TestPoller_ExpiredStopsImmediately(t *testing.T) {
	client := &scriptedClient{script: []PollResult{
		{Outcome: OutcomePending},
		{Outcome: OutcomeExpiredOrDenied},
	}}

	poller := NewPoller(client)
	status, token, err := poller.Run(context.Background(), "dc-1",
		5*time.Millisecond, time.Second, time.Second)

	require.NoError(t, err)
	assert.Equal(t, PollExpiredOrDenied, status)
	assert.Empty(t, token)
	assert.Equal(t, 2, client.callCount(), "terminal denial must not be retried")
}

func TestPoller_LifetimeBoundsSession(t *testing.T) {
	// The device code lifetime is shorter than the caller timeout; the
	// session must end at the lifetime, not the timeout.
	client := &scriptedClient{script: []PollResult{{Outcome: OutcomePending}}}

	poller := NewPoller(client)
	start := time.Now()
	status, _, err := poller.Run(context.Background(), "dc-1",
		10*time.Millisecond, 100*time.Millisecond, 10*time.Second)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, PollTimedOut, status)
	assert.Less(t, elapsed, time.Second, "session must end near the 100ms lifetime, not the 10s timeout")
}

func TestPoller_TimeoutBoundsSession(t *testing.T) {
	client := &scriptedClient{script: []PollResult{{Outcome: OutcomePending}}}

	poller := NewPoller(client)
	start := time.Now()
	status, _, err := poller.Run(context.Background(), "dc-1",
		10*time.Millisecond, 10*time.Second, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, PollTimedOut, status)
	assert.Less(t, elapsed, time.Second)
}

func TestPoller_SlowDownIncreasesInterval(t *testing.T) {
	client := &scriptedClient{script: []PollResult{
		{Outcome: OutcomeSlowDown},
		{Outcome: OutcomeSlowDown},
		{Outcome: OutcomeApproved, AccessToken: "gho_token"},
	}}

	poller := NewPoller(client)
	poller.SlowDownStep = 20 * time.Millisecond

	start := time.Now()
	status, _, err := poller.Run(context.Background(), "dc-1",
		time.Millisecond, time.Minute, time.Minute)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, PollApproved, status)
	// First sleep ~21ms, second ~41ms; well above the 1ms starting interval.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestPoller_SlowDownHonorsServerInterval(t *testing.T) {
	tests := []struct {
		name       string
		current    time.Duration
		step       time.Duration
		retryAfter time.Duration
		expected   time.Duration
	}{
		{"step wins when server is silent", 5 * time.Second, 5 * time.Second, 0, 10 * time.Second},
		{"server value adopted when larger", 5 * time.Second, 5 * time.Second, 15 * time.Second, 15 * time.Second},
		{"step wins over a smaller server value", 20 * time.Second, 5 * time.Second, 10 * time.Second, 25 * time.Second},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next := nextInterval(test.current, test.step, test.retryAfter)
			assert.Equal(t, test.expected, next)
			assert.Greater(t, next, test.current, "interval must strictly increase")
		})
	}
}

func TestPoller_TransportErrorAborts(t *testing.T) {
	client := &scriptedClient{script: []PollResult{
		{Outcome: OutcomePending},
		{Outcome: OutcomeTransportError, Err: errors.New("connection reset")},
	}}

	poller := NewPoller(client)
	_, _, err := poller.Run(context.Background(), "dc-1",
		5*time.Millisecond, time.Second, time.Second)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 2, client.callCount(), "transport errors are not silently retried")
}

func TestPoller_CancellationInterruptsSleep(t *testing.T) {
	client := &scriptedClient{script: []PollResult{{Outcome: OutcomePending}}}

	poller := NewPoller(client)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var status PollStatus
	go func() {
		defer close(done)
		// A long interval: without interruptible sleeps this would block
		// for 30s.
		status, _, _ = poller.Run(ctx, "dc-1", 30*time.Second, time.Hour, time.Hour)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
		assert.Equal(t, PollTimedOut, status, "cancellation reports as a timeout")
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not interrupt the poll sleep")
	}
}

func TestPoller_DefaultsApplied(t *testing.T) {
	client := &scriptedClient{script: []PollResult{
		{Outcome: OutcomeApproved, AccessToken: "gho_token"},
	}}

	// Zero interval/lifetime fall back to the RFC defaults rather than
	// busy-looping.
	poller := NewPoller(client)
	status, token, err := poller.Run(context.Background(), "dc-1", 0, 0, time.Minute)

	require.NoError(t, err)
	assert.Equal(t, PollApproved, status)
	assert.Equal(t, "gho_token", token)
}
