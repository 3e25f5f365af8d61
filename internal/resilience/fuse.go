package resilience

import "sync"

// Fuse tracks consecutive failures against an external service and blows
// permanently once a threshold is reached. Unlike a full circuit breaker it
// never recovers: a batch run that has established the service is down should
// abort rather than probe for recovery.
type Fuse struct {
	mu        sync.Mutex
	threshold int
	failures  int
	blown     bool
}

// NewFuse creates a fuse that blows after threshold consecutive failures.
// A threshold <= 0 defaults to 5.
func NewFuse(threshold int) *Fuse {
	if threshold <= 0 {
		threshold = 5
	}
	return &Fuse{threshold: threshold}
}

// Failure records one failed call and reports whether the fuse is now blown.
func (f *Fuse) Failure() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	if f.failures >= f.threshold {
		f.blown = true
	}
	return f.blown
}

// Success resets the consecutive-failure count. A blown fuse stays blown.
func (f *Fuse) Success() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.blown {
		f.failures = 0
	}
}

// Blown reports whether the threshold has been reached.
func (f *Fuse) Blown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blown
}
