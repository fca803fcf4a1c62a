package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how many items of a job are done.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// Start marks some items as being worked on.
func (b *ProgressBar) Start(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// Finish moves some items from in progress to finished. Items that were
// never started count as finished only.
func (b *ProgressBar) Finish(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= min(amount, b.InProgress)
	b.Finished += amount
}

// Done tells if every item is finished.
func (b *ProgressBar) Done() bool {
	b.Lock()
	defer b.Unlock()

	return b.Finished >= b.Total
}
