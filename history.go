package deckcontent

// historyCapacity bounds the per-slide change history. Oldest entries are
// dropped first; the audit trail is best-effort, not a full undo log.
const historyCapacity = 100

// historyTailSize is how many entries the serialized slide document keeps.
const historyTailSize = 10

// Change action kinds recorded in slide history.
const (
	actionAddElement     = "add_element"
	actionRemoveElement  = "remove_element"
	actionUpdateElement  = "update_element"
	actionReorderElement = "reorder_element"
)

// ChangeRecord is one entry in a slide's mutation history.
type ChangeRecord struct {
	Timestamp Timestamp      `json:"timestamp"`
	Action    string         `json:"action"`
	ElementID string         `json:"element_id"`
	Data      map[string]any `json:"data"`
	Version   int            `json:"version"` // slide version at the time of the change
}

// historyRing is a fixed-capacity ring buffer of change records.
type historyRing struct {
	entries [historyCapacity]ChangeRecord
	start   int
	count   int
}

// push appends a record, evicting the oldest when full.
func (r *historyRing) push(rec ChangeRecord) {
	if r.count < historyCapacity {
		r.entries[(r.start+r.count)%historyCapacity] = rec
		r.count++
		return
	}
	r.entries[r.start] = rec
	r.start = (r.start + 1) % historyCapacity
}

// len reports the number of retained records.
func (r *historyRing) len() int { return r.count }

// all returns the retained records, oldest first.
func (r *historyRing) all() []ChangeRecord {
	out := make([]ChangeRecord, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%historyCapacity]
	}
	return out
}

// tail returns the most recent n records, oldest first.
func (r *historyRing) tail(n int) []ChangeRecord {
	if n > r.count {
		n = r.count
	}
	out := make([]ChangeRecord, n)
	for i := 0; i < n; i++ {
		out[i] = r.entries[(r.start+r.count-n+i)%historyCapacity]
	}
	return out
}

// seed replaces the ring contents with the given records, keeping only the
// most recent historyCapacity of them.
func (r *historyRing) seed(records []ChangeRecord) {
	r.start = 0
	r.count = 0
	if len(records) > historyCapacity {
		records = records[len(records)-historyCapacity:]
	}
	for _, rec := range records {
		r.push(rec)
	}
}
