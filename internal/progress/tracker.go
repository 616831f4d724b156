package progress

import (
	"context"
	"time"
)

// Batch is the part of a render batch a Tracker watches.
type Batch interface {
	Position() int
	Total() int
}

// Tracker reports the position of a running batch at a fixed interval.
type Tracker struct {
	hub      *Hub
	interval time.Duration
}

// NewTracker returns a tracker broadcasting on hub every interval.
func NewTracker(hub *Hub, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Tracker{hub: hub, interval: interval}
}

// Start broadcasts the started message of a batch. Call it before Track
// so no progress or outcome message can precede it.
func (t *Tracker) Start(id, backend string, b Batch) {
	t.hub.Broadcast(Message{Type: "started", Batch: id, Backend: backend, Total: b.Total()})
}

// Track broadcasts progress messages until ctx is done. Positions that
// have not moved are not repeated.
func (t *Tracker) Track(ctx context.Context, id, backend string, b Batch) {
	total := b.Total()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos := b.Position()
			if pos == last {
				continue
			}
			last = pos
			t.hub.Broadcast(Message{Type: "progress", Batch: id, Backend: backend, Position: pos, Total: total, Progress: percent(pos, total)})
		}
	}
}

// Finish broadcasts the outcome of a batch.
func (t *Tracker) Finish(id, backend string, b Batch, cancelled bool, err error) {
	msg := Message{Batch: id, Backend: backend, Position: b.Position(), Total: b.Total()}
	msg.Progress = percent(msg.Position, msg.Total)
	switch {
	case err != nil:
		msg.Type = "error"
		msg.Message = err.Error()
	case cancelled:
		msg.Type = "cancelled"
	default:
		msg.Type = "complete"
		msg.Progress = 100
	}
	t.hub.Broadcast(msg)
}

func percent(pos, total int) int {
	if total == 0 {
		return 100
	}
	return pos * 100 / total
}
