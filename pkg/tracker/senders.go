// Package tracker keeps per-sender activity counts for the capture milter.
package tracker

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// SenderTracker counts captured messages per sender address
type SenderTracker struct {
	mu      sync.RWMutex
	senders map[string]*SenderStats
	window  time.Duration
	now     func() time.Time
}

// SenderStats tracks statistics for a sender
type SenderStats struct {
	Address   string
	Domain    string
	Captured  int
	Recent    []time.Time // capture times inside the window, oldest first
	FirstSeen time.Time
	LastSeen  time.Time
}

// NewSenderTracker creates a tracker whose recent counts cover window.
func NewSenderTracker(window time.Duration) *SenderTracker {
	return &SenderTracker{
		senders: make(map[string]*SenderStats),
		window:  window,
		now:     time.Now,
	}
}

// Track records a captured message from address and returns how many
// messages that sender had captured inside the window, this one included.
func (t *SenderTracker) Track(address string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	address = strings.ToLower(strings.TrimSpace(address))

	stats, ok := t.senders[address]
	if !ok {
		stats = &SenderStats{
			Address:   address,
			Domain:    domainOf(address),
			FirstSeen: now,
		}
		t.senders[address] = stats
	}
	stats.Captured++
	stats.LastSeen = now
	stats.Recent = append(stats.Recent, now)
	t.prune(stats, now)

	return len(stats.Recent)
}

// prune drops capture times older than the window.
func (t *SenderTracker) prune(stats *SenderStats, now time.Time) {
	windowStart := now.Add(-t.window)
	i := 0
	for i < len(stats.Recent) && !stats.Recent[i].After(windowStart) {
		i++
	}
	stats.Recent = stats.Recent[i:]
}

// GetSenderStats returns a copy of the statistics for address, or nil.
func (t *SenderTracker) GetSenderStats(address string) *SenderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats, ok := t.senders[strings.ToLower(strings.TrimSpace(address))]
	if !ok {
		return nil
	}
	statsCopy := *stats
	statsCopy.Recent = append([]time.Time(nil), stats.Recent...)
	return &statsCopy
}

// Senders returns copies of every sender's statistics, most captured first.
func (t *SenderTracker) Senders() []SenderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]SenderStats, 0, len(t.senders))
	for _, s := range t.senders {
		c := *s
		c.Recent = append([]time.Time(nil), s.Recent...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Captured != out[j].Captured {
			return out[i].Captured > out[j].Captured
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Reset clears all tracking data
func (t *SenderTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.senders = make(map[string]*SenderStats)
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return ""
}
