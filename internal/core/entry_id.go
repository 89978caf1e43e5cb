package core

import "time"

// NextEntryID returns the id for an entry appended at now: its Unix
// millisecond timestamp, bumped past the largest existing id so that two
// appends within the same millisecond stay distinct within a skill.
func NextEntryID(existing []Entry, now time.Time) int64 {
	id := now.UnixMilli()
	for _, e := range existing {
		if e.ID >= id {
			id = e.ID + 1
		}
	}
	return id
}
