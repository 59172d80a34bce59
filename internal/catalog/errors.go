package catalog

import "fmt"

// IntrospectionError reports a per-table discovery failure. It degrades the
// affected table to a partial descriptor and never fails the pass.
type IntrospectionError struct {
	Table string
	Facts string // which fact set failed: columns, indexes, ...
	Err   error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspection failed for table %s (%s): %v", e.Table, e.Facts, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

// SchemaNotFoundError reports a lookup of a table the current snapshot does
// not contain.
type SchemaNotFoundError struct {
	Table string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("table %s not found in schema", e.Table)
}

// ConnectionError is fatal to one discovery attempt; the cache keeps its
// previous good snapshot.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("discovery connection failure: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CacheStaleError is raised only when a caller demanded a guaranteed-fresh
// read and the refresh attempt failed.
type CacheStaleError struct {
	Err error
}

func (e *CacheStaleError) Error() string {
	return fmt.Sprintf("cache refresh failed, serving would be stale: %v", e.Err)
}

func (e *CacheStaleError) Unwrap() error { return e.Err }

// Warning is a non-fatal per-table finding attached to a discovery result.
type Warning struct {
	Table   string
	Message string
}

func (w Warning) String() string {
	if w.Table == "" {
		return w.Message
	}
	return w.Table + ": " + w.Message
}
