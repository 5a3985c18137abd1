// Package throttle paces outbound fetch calls so the upstream boards
// are not hammered by concurrent workers.
//
// The limiter spaces requests by wall-clock time rather than a token
// bucket: a single fetch fans out to every configured site at once, so
// the effective spacing for a call is the maximum of the per-site
// delays, optionally widened or narrowed by uniform jitter.
package throttle

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Config configures the limiter.
type Config struct {
	// Enabled turns throttling on. When false, Acquire is a no-op.
	Enabled bool

	// DefaultDelay applies to sites without an explicit override.
	DefaultDelay time.Duration

	// SiteDelays maps lowercase site names to their minimum spacing.
	SiteDelays map[string]time.Duration

	// Jitter is the fraction of the delay sampled uniformly in
	// [-jitter, +jitter] and added to each wait. Must be in [0, 1];
	// zero yields deterministic spacing.
	Jitter float64
}

// Limiter enforces a minimum spacing between outbound fetch calls.
//
// One Limiter instance covers one throttling domain. All state is owned
// by the instance; there are no package-level globals, so independent
// runs can carry independent limiters.
type Limiter struct {
	cfg Config

	mu          sync.Mutex
	lastRequest time.Time

	// now and sleep are injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Limiter for one throttling domain.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// DelayFor returns the base spacing for a call that fans out to the
// given sites: the maximum of the per-site delays, or the default delay
// when no site carries an override.
func (l *Limiter) DelayFor(sites []string) time.Duration {
	delay := time.Duration(0)
	matched := false
	for _, site := range sites {
		if d, ok := l.cfg.SiteDelays[strings.ToLower(site)]; ok {
			matched = true
			if d > delay {
				delay = d
			}
		}
	}
	if !matched || l.cfg.DefaultDelay > delay {
		if l.cfg.DefaultDelay > delay {
			delay = l.cfg.DefaultDelay
		}
	}
	return delay
}

// Acquire blocks until it is safe to issue the next fetch, then records
// the new last-request timestamp before returning. The timestamp is
// taken before the subsequent call executes, so the limiter bounds the
// request rate, not the request duration.
//
// The critical section (read last, compute wait, sleep, write new) is a
// single mutex-guarded region, which serializes concurrent workers for
// the duration of the wait. That is intentional: the spacing applies to
// the domain, not to each worker.
func (l *Limiter) Acquire(ctx context.Context, sites []string) error {
	if !l.cfg.Enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	delay := l.jittered(l.DelayFor(sites))
	if !l.lastRequest.IsZero() {
		elapsed := l.now().Sub(l.lastRequest)
		if wait := delay - elapsed; wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	l.lastRequest = l.now()
	return nil
}

// jittered widens or narrows the delay by up to delay*jitter, sampled
// uniformly. Jitter zero returns the delay unchanged.
func (l *Limiter) jittered(delay time.Duration) time.Duration {
	if l.cfg.Jitter <= 0 || delay <= 0 {
		return delay
	}
	amount := float64(delay) * l.cfg.Jitter
	offset := (rand.Float64()*2 - 1) * amount
	return time.Duration(float64(delay) + offset)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
