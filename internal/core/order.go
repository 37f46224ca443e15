package core

import "github.com/JonMunkholm/permits/internal/schema"

// Reorder lays rec out in the import column order. Missing columns are
// empty; fields outside the column list are dropped.
func Reorder(rec FlatRecord) OrderedRecord {
	return ReorderTo(rec, schema.Columns)
}

// ReorderTo lays rec out in the given column order.
func ReorderTo(rec FlatRecord, columns []string) OrderedRecord {
	out := make(OrderedRecord, len(columns))
	for i, c := range columns {
		out[i] = Field{Name: c, Value: rec[c]}
	}
	return out
}
