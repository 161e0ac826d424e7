package model

import (
	"sync"
	"time"
)

// Flash is the transient status-bar notice: send failures, load errors
// and connection remarks land here and fade out on their own. The
// second-resolution UI ticker polls Get, so expiry never needs a timer.
type Flash struct {
	mu      sync.RWMutex
	text    string
	expires time.Time
}

// Set replaces the current notice and schedules its expiry.
func (f *Flash) Set(text string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.expires = time.Now().Add(d)
}

// Get returns the notice still in effect, or "" once it has expired.
func (f *Flash) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if time.Now().After(f.expires) {
		return ""
	}
	return f.text
}
