package transport

import (
	"math"
	"math/rand"
	"time"
)

// ReconnectPolicy controls the backoff loop that follows an unexpected close.
type ReconnectPolicy struct {
	// Initial is the delay before the first reconnect attempt.
	Initial time.Duration
	// Max caps the delay between attempts.
	Max time.Duration
	// Factor multiplies the delay after every attempt.
	Factor float64
	// Jitter spreads each delay by ±Jitter (0.2 means ±20%).
	Jitter float64
	// MaxAttempts bounds the number of attempts before the transport gives
	// up and reports a fatal failure.
	MaxAttempts int
}

// DefaultReconnectPolicy returns the production reconnect policy.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Initial:     500 * time.Millisecond,
		Max:         30 * time.Second,
		Factor:      2,
		Jitter:      0.2,
		MaxAttempts: 10,
	}
}

func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	def := DefaultReconnectPolicy()
	if p.Initial <= 0 {
		p.Initial = def.Initial
	}
	if p.Max <= 0 {
		p.Max = def.Max
	}
	if p.Factor <= 1 {
		p.Factor = def.Factor
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	return p
}

// backoff tracks reconnect attempts for a single transport.
type backoff struct {
	policy  ReconnectPolicy
	attempt int
	rng     *rand.Rand
}

func newBackoff(policy ReconnectPolicy) *backoff {
	return &backoff{
		policy: policy.withDefaults(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// exhausted reports whether the attempt budget is spent.
func (b *backoff) exhausted() bool {
	return b.attempt >= b.policy.MaxAttempts
}

// next returns the delay before the upcoming attempt and advances the
// counter. The delay grows by Factor per attempt, is capped at Max and is
// spread by ±Jitter.
func (b *backoff) next() time.Duration {
	base := float64(b.policy.Initial) * math.Pow(b.policy.Factor, float64(b.attempt))
	if base > float64(b.policy.Max) {
		base = float64(b.policy.Max)
	}
	if j := b.policy.Jitter; j > 0 {
		spread := (b.rng.Float64()*2 - 1) * j
		base *= 1 + spread
	}
	b.attempt++
	return time.Duration(base)
}

// reset clears the attempt counter after a successful handshake.
func (b *backoff) reset() {
	b.attempt = 0
}
