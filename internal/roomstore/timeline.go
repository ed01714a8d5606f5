package roomstore

import (
	"github.com/CrowdSynth/coordinator/internal/types"
)

// appendTimelineLocked pushes a new timeline entry and trims the ring
// buffer down to maxTimelineLength, discarding the oldest entries first.
// Caller must hold r.mu.
func (r *Room) appendTimelineLocked(source, text string) {
	r.timeline.PushBack(types.TimelineEvent{
		Time:   nowMillis(),
		Source: source,
		Text:   text,
	})
	for r.timeline.Len() > maxTimelineLength {
		r.timeline.Remove(r.timeline.Front())
	}
}

// recentTimelineLocked returns up to the last timelineBroadcastN entries in
// chronological order. Caller must hold r.mu.
func (r *Room) recentTimelineLocked() []types.TimelineEvent {
	n := r.timeline.Len()
	if n == 0 {
		return nil
	}
	if n > timelineBroadcastN {
		n = timelineBroadcastN
	}

	out := make([]types.TimelineEvent, n)
	e := r.timeline.Back()
	for i := n - 1; i >= 0; i-- {
		out[i] = e.Value.(types.TimelineEvent)
		e = e.Prev()
	}
	return out
}
