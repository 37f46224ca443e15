package core

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/schema"
	"github.com/JonMunkholm/permits/internal/valuemap"
)

const (
	// isoMillis is the timestamp layout the forms API writes. Only values
	// that format back to the identical string count as timestamps.
	isoMillis = "2006-01-02T15:04:05.000Z07:00"

	// displayTime is how timestamps appear in the feed.
	displayTime = "2006-01-02 03:04:05 PM"
)

// Formatter normalizes flat record values for the downstream system.
// Format is idempotent: formatting an already formatted record changes
// nothing.
type Formatter struct {
	classification *schema.Classification
	values         *valuemap.Store
	loc            *time.Location
	reporter       anomaly.Reporter
}

// NewFormatter returns a Formatter rendering timestamps in loc.
func NewFormatter(c *schema.Classification, values *valuemap.Store, loc *time.Location, r anomaly.Reporter) *Formatter {
	if r == nil {
		r = anomaly.Discard
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{classification: c, values: values, loc: loc, reporter: r}
}

// Format returns a formatted copy of rec. A field that cannot be formatted
// becomes "" and is reported; the rest of the record is unaffected.
func (f *Formatter) Format(ctx context.Context, rec FlatRecord) FlatRecord {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(FlatRecord, len(rec))
	derived := make(FlatRecord)
	for _, k := range keys {
		v, err := f.formatField(k, rec[k], derived)
		if err != nil {
			kind := anomaly.Format
			if f.classification.CategoryOf(k).UsesValueMap() {
				kind = anomaly.ValueMap
			}
			f.reporter.Report(ctx, anomaly.Anomaly{Kind: kind, SubmissionID: rec.ID(), Field: k, Err: err})
			v = ""
		}
		out[k] = v
	}
	for k, v := range derived {
		out[k] = v
	}

	for _, r := range schema.Relabels {
		if v, ok := out[r.From]; ok {
			out[r.To] = v
			delete(out, r.From)
		}
	}
	return out
}

func (f *Formatter) formatField(field, value string, derived FlatRecord) (string, error) {
	if t, ok := parseTimestamp(value); ok {
		return t.In(f.loc).Format(displayTime), nil
	}

	switch cat := f.classification.CategoryOf(field); {
	case cat.UsesValueMap():
		mapped, err := f.values.Map(cat, value)
		if err != nil {
			return "", err
		}
		if cat == schema.ConstructionType {
			if err := f.deriveFireRating(field, value, derived); err != nil {
				return "", err
			}
			mapped = firstRune(mapped)
		}
		return mapped, nil

	case cat == schema.PhoneFields, cat == schema.AppNumFields:
		return digitsOnly(value), nil
	}

	return sanitize(value), nil
}

// deriveFireRating fills the fire rating field that belongs to a
// construction type field. Only raw construction type keys carry a rating;
// an already coded value leaves the existing rating untouched. For a
// multi-select value the first rated element wins.
func (f *Formatter) deriveFireRating(field, value string, derived FlatRecord) error {
	target, ok := schema.FireRatingFields[field]
	if !ok || !f.hasConstructionKey(value) {
		return nil
	}
	rating, err := f.values.Map(schema.FireRating, value)
	if err != nil {
		return err
	}
	derived[target] = firstRune(rating)
	return nil
}

func (f *Formatter) hasConstructionKey(value string) bool {
	for _, part := range strings.Split(strings.Trim(value, `"`), ",") {
		if f.values.IsKey(schema.ConstructionType, part) {
			return true
		}
	}
	return false
}

func parseTimestamp(s string) (time.Time, bool) {
	if len(s) < len("2006-01-02T15:04:05.000Z") || s[4] != '-' || s[10] != 'T' {
		return time.Time{}, false
	}
	t, err := time.Parse(isoMillis, s)
	if err != nil || t.Format(isoMillis) != s {
		return time.Time{}, false
	}
	return t, true
}

func firstRune(s string) string {
	if s == "" {
		return ""
	}
	_, n := utf8.DecodeRuneInString(s)
	return s[:n]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitize removes the feed delimiter and collapses every whitespace run,
// embedded newlines included, to a single space.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "|", "")
	return strings.Join(strings.Fields(s), " ")
}
