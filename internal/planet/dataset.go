package planet

import (
	"context"
	"time"
)

// Dataset is the write-once record collection for a session.
// It is safe for concurrent readers because nothing mutates it after construction.
type Dataset struct {
	records  []Record
	source   string
	loadedAt time.Time
}

// NewDataset wraps records; the slice is copied so later caller edits do not leak in.
func NewDataset(source string, records []Record) *Dataset {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Dataset{records: cp, source: source, loadedAt: time.Now()}
}

// LoadDataset loads source once and freezes the result.
func LoadDataset(ctx context.Context, source string, opt LoadOptions) *Dataset {
	return NewDataset(source, Load(ctx, source, opt))
}

// Records returns a copy of the collection in source order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return []Record{}
	}
	cp := make([]Record, len(d.records))
	copy(cp, d.records)
	return cp
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Empty reports whether the load produced no records ("no data").
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// Find looks a record up by exact name.
func (d *Dataset) Find(name string) (Record, bool) {
	if d == nil {
		return Record{}, false
	}
	return Find(d.records, name)
}

// Source returns the path or URL the dataset was loaded from.
func (d *Dataset) Source() string {
	if d == nil {
		return ""
	}
	return d.source
}

// LoadedAt returns when the dataset was frozen.
func (d *Dataset) LoadedAt() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.loadedAt
}
