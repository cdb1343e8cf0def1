package deviceflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"copilotauth/pkg/logging"
)

// DefaultSlowDownStep is added to the poll interval on each slow_down
// response when the server does not name a larger interval itself.
const DefaultSlowDownStep = 5 * time.Second

// PollClient is the single exchange the poller drives. *Client implements
// it; tests substitute scripted fakes.
type PollClient interface {
	PollOnce(ctx context.Context, deviceCode string) PollResult
}

// PollStatus is the terminal state of a polling session.
type PollStatus int

const (
	// PollApproved means the user approved and an access token was issued.
	PollApproved PollStatus = iota

	// PollTimedOut means the caller's timeout or the device code lifetime
	// elapsed before approval. Cancellation of the context reports as a
	// timeout as well: an interactive abort is an immediate deadline.
	PollTimedOut

	// PollExpiredOrDenied means the server terminally rejected the flow.
	PollExpiredOrDenied
)

// String returns the status name for logging.
func (s PollStatus) String() string {
	switch s {
	case PollApproved:
		return "approved"
	case PollTimedOut:
		return "timed_out"
	case PollExpiredOrDenied:
		return "expired_or_denied"
	default:
		return "unknown"
	}
}

// Poller drives repeated poll exchanges for one device code, honoring the
// server interval, slow-down backoff, and an overall deadline. Polls are
// strictly sequential; there is never more than one in flight.
type Poller struct {
	client PollClient

	// SlowDownStep is the interval increase applied per slow_down
	// response. Defaults to DefaultSlowDownStep.
	SlowDownStep time.Duration
}

// NewPoller creates a poller over the given client.
func NewPoller(client PollClient) *Poller {
	return &Poller{
		client:       client,
		SlowDownStep: DefaultSlowDownStep,
	}
}

// Run polls until a terminal outcome. The session ends at whichever of
// timeout and lifetime elapses first; interval is the server's initial
// poll spacing. The returned access token is non-empty only for
// PollApproved. Transport faults abort the session with an error; the
// caller decides whether to restart the whole attempt.
//
// Sleeps select on ctx, so cancellation never waits out an interval.
func (p *Poller) Run(ctx context.Context, deviceCode string, interval, lifetime, timeout time.Duration) (PollStatus, string, error) {
	if interval <= 0 {
		interval = DefaultInterval * time.Second
	}
	if lifetime <= 0 {
		lifetime = DefaultExpiresIn * time.Second
	}

	step := p.SlowDownStep
	if step <= 0 {
		step = DefaultSlowDownStep
	}

	deadline := lifetime
	if timeout > 0 && timeout < deadline {
		deadline = timeout
	}

	session := uuid.New().String()
	start := time.Now()
	logging.Debug("DeviceFlow", "poll session %s started, interval %s, deadline %s",
		session, interval, deadline)

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			logging.Debug("DeviceFlow", "poll session %s cancelled", session)
			return PollTimedOut, "", nil
		}
		remaining := deadline - time.Since(start)
		if remaining <= 0 {
			logging.Debug("DeviceFlow", "poll session %s timed out after %d attempt(s)", session, attempt-1)
			return PollTimedOut, "", nil
		}

		result := p.client.PollOnce(ctx, deviceCode)
		logging.Debug("DeviceFlow", "poll session %s attempt %d: %s", session, attempt, result.Outcome)

		switch result.Outcome {
		case OutcomeApproved:
			return PollApproved, result.AccessToken, nil

		case OutcomeExpiredOrDenied:
			return PollExpiredOrDenied, "", nil

		case OutcomePending:
			// Keep the current interval.

		case OutcomeSlowDown:
			interval = nextInterval(interval, step, result.RetryAfter)
			logging.Debug("DeviceFlow", "poll session %s slowing down to %s", session, interval)

		case OutcomeTransportError:
			return PollTimedOut, "", fmt.Errorf("polling aborted: %w", result.Err)

		default:
			return PollTimedOut, "", fmt.Errorf("polling aborted: unexpected outcome %d", result.Outcome)
		}

		if !p.sleep(ctx, interval, deadline-time.Since(start)) {
			logging.Debug("DeviceFlow", "poll session %s cancelled", session)
			return PollTimedOut, "", nil
		}
	}
}

// nextInterval computes the slowed-down interval: the server's requested
// value when it exceeds the stepped-up one, the stepped-up value
// otherwise. The result is always strictly greater than current.
func nextInterval(current, step, retryAfter time.Duration) time.Duration {
	next := current + step
	if retryAfter > next {
		next = retryAfter
	}
	return next
}

// sleep waits for d, capped at remaining, and returns false if the
// context was cancelled first. A non-positive remaining still performs no
// wait and reports true so the loop's deadline check runs.
func (p *Poller) sleep(ctx context.Context, d, remaining time.Duration) bool {
	if remaining <= 0 {
		return true
	}
	if d > remaining {
		d = remaining
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
