package telemetry

import "maps"

// HistoryCapacity is the number of entries the history log retains.
const HistoryCapacity = 100

// HistoryEntry is one population sample taken after a step.
type HistoryEntry struct {
	Time        float64        `json:"time"`
	Day         int            `json:"day"`
	Temperature float64        `json:"temperature"`
	Populations map[string]int `json:"populations"`
	Weather     string         `json:"weather"`
}

// Clone returns a copy that shares no map with e.
func (e HistoryEntry) Clone() HistoryEntry {
	e.Populations = maps.Clone(e.Populations)
	return e
}

// HistoryLog is a bounded FIFO of history entries (circular buffer).
// Once full, appending evicts the oldest entry.
type HistoryLog struct {
	entries []HistoryEntry
	start   int
	count   int
}

// NewHistoryLog creates an empty log with HistoryCapacity slots.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{entries: make([]HistoryEntry, HistoryCapacity)}
}

// Append adds an entry, evicting the oldest when full.
func (h *HistoryLog) Append(e HistoryEntry) {
	if h.count < len(h.entries) {
		h.entries[(h.start+h.count)%len(h.entries)] = e
		h.count++
		return
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % len(h.entries)
}

// Len returns the number of retained entries.
func (h *HistoryLog) Len() int {
	return h.count
}

// Entries returns a chronological deep copy of the retained entries.
func (h *HistoryLog) Entries() []HistoryEntry {
	out := make([]HistoryEntry, h.count)
	for i := range h.count {
		out[i] = h.entries[(h.start+i)%len(h.entries)].Clone()
	}
	return out
}

// Latest returns the newest entry, or false when the log is empty.
func (h *HistoryLog) Latest() (HistoryEntry, bool) {
	if h.count == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[(h.start+h.count-1)%len(h.entries)].Clone(), true
}
