package loader

import "sync"

// Record is one loaded row bound to its table. Relationship results never
// mutate Values; they live in the Attachments side map keyed by the
// record's identity.
type Record struct {
	Table  string
	Values Row
}

func NewRecord(table string, values Row) *Record {
	return &Record{Table: table, Values: values}
}

// Get returns a column value from the row.
func (r *Record) Get(column string) any {
	return r.Values[column]
}

// Attachments maps (record identity, relationship name) to loaded related
// records. An entry with an empty slice means "loaded, nothing matched",
// which is distinct from "never loaded". Safe for concurrent use: LoadAll
// resolves independent paths in parallel.
type Attachments struct {
	mu   sync.RWMutex
	data map[*Record]map[string][]*Record
}

func NewAttachments() *Attachments {
	return &Attachments{data: make(map[*Record]map[string][]*Record)}
}

func (a *Attachments) attach(rec *Record, name string, related []*Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byName, ok := a.data[rec]
	if !ok {
		byName = make(map[string][]*Record)
		a.data[rec] = byName
	}
	if related == nil {
		related = []*Record{}
	}
	byName[name] = related
}

// Related returns the loaded records for a to-many relationship. The bool
// reports whether the relationship was loaded at all.
func (a *Attachments) Related(rec *Record, name string) ([]*Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	byName, ok := a.data[rec]
	if !ok {
		return nil, false
	}
	related, ok := byName[name]
	return related, ok
}

// One returns the single record of a to-one relationship, or nil when the
// relationship was loaded and nothing matched.
func (a *Attachments) One(rec *Record, name string) (*Record, bool) {
	related, ok := a.Related(rec, name)
	if !ok || len(related) == 0 {
		return nil, ok
	}
	return related[0], true
}
