package httpapi

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiter is a per-key (public key or remote IP) token bucket refilling
// once an hour, mirroring the original's req_per_hour / airdrop_per_hour
// knobs. Keys are created lazily and never evicted: a long-lived process
// is expected to see a bounded number of distinct pubkeys/IPs relative to
// its uptime.
type limiter struct {
	mu       sync.Mutex
	perHour  int
	byKey    map[string]*rate.Limiter
}

func newLimiter(perHour int) *limiter {
	if perHour <= 0 {
		perHour = 1
	}
	return &limiter{perHour: perHour, byKey: make(map[string]*rate.Limiter)}
}

// allow reports whether key may proceed now, and if not, how long until it
// may (for the Retry-After header).
func (l *limiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	lim, ok := l.byKey[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Hour/time.Duration(l.perHour)), l.perHour)
		l.byKey[key] = lim
	}
	l.mu.Unlock()

	res := lim.Reserve()
	if !res.OK() {
		return false, time.Hour
	}
	delay := res.Delay()
	if delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
