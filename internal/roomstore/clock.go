package roomstore

import "time"

// nowMillis returns the current time as Unix milliseconds, the unit
// timeline_event.time is expressed in.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
