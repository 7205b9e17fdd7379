package executor

import (
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"openapi-mcp/internal/api"
)

// Sleeper suspends the calling goroutine between 429 retries.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(d time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

var digitsOnly = regexp.MustCompile(`^\d+$`)

// maxRetryAfterSeconds is the largest delta that fits in a time.Duration.
const maxRetryAfterSeconds = int64(math.MaxInt64 / time.Second)

// parseRetryAfter reads a Retry-After value as delta seconds or an HTTP date.
// Zero, negative, past and unparseable values are rejected. Deltas too large
// for a time.Duration saturate at the largest one.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}

	if digitsOnly.MatchString(trimmed) {
		seconds, err := strconv.ParseInt(trimmed, 10, 64)
		if errors.Is(err, strconv.ErrRange) || seconds > maxRetryAfterSeconds {
			return time.Duration(math.MaxInt64), true
		}
		if err != nil || seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	at, err := http.ParseTime(trimmed)
	if err != nil {
		return 0, false
	}
	delta := at.Sub(now)
	if delta <= 0 {
		return 0, false
	}
	return delta, true
}

// retryDelay computes the pause before retry number attempt+1.
//
// A usable Retry-After wins, capped at the policy maximum. Otherwise the delay
// is baseDelay*2^attempt, capped, then scaled by a random factor in
// [1-jitter, 1+jitter] and clamped into [0, maxDelay]. random returns values
// in [0, 1).
func retryDelay(policy api.RetryPolicy, retryAfter string, attempt int, now time.Time, random func() float64) time.Duration {
	maxDelay := time.Duration(policy.MaxDelayMs) * time.Millisecond

	if policy.RespectRetryAfter {
		if d, ok := parseRetryAfter(retryAfter, now); ok {
			return min(d, maxDelay)
		}
	}

	exponential := float64(policy.BaseDelayMs) * float64(uint64(1)<<min(attempt, 62))
	capped := min(exponential, float64(policy.MaxDelayMs))
	if policy.JitterRatio == 0 {
		return time.Duration(capped * float64(time.Millisecond))
	}

	multiplier := 1 + (random()*2-1)*policy.JitterRatio
	jittered := min(float64(policy.MaxDelayMs), max(0, capped*multiplier))
	return time.Duration(jittered * float64(time.Millisecond))
}

// retryState is a step of the per-call retry loop.
type retryState int

const (
	stateAttempt retryState = iota
	stateEvaluate
	stateSleep
	stateDone
)

func (s retryState) String() string {
	switch s {
	case stateAttempt:
		return "attempt"
	case stateEvaluate:
		return "evaluate"
	case stateSleep:
		return "sleep"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}
