package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/schema"
	"github.com/JonMunkholm/permits/internal/submission"
)

// listSeparator joins multi-valued fields in flat records.
const listSeparator = ", "

// Flattener turns nested submission payloads into flat records.
type Flattener struct {
	classification *schema.Classification
	reporter       anomaly.Reporter
}

// NewFlattener returns a Flattener. A nil reporter discards anomalies.
func NewFlattener(c *schema.Classification, r anomaly.Reporter) *Flattener {
	if r == nil {
		r = anomaly.Discard
	}
	return &Flattener{classification: c, reporter: r}
}

// Flatten converts raw into a flat record, or explains why it is not
// exported. Exactly one of the results is non-nil.
func (f *Flattener) Flatten(ctx context.Context, raw submission.Raw) (FlatRecord, *Exclusion) {
	if ex := exclusionOf(raw); ex != nil {
		return nil, ex
	}

	data := raw.Data
	out := make(FlatRecord, data.Len()+2)

	for _, key := range data.Keys() {
		if schema.ExcludedFields[key] {
			continue
		}
		v, _ := data.Get(key)

		switch val := v.(type) {
		case []any:
			f.flattenList(ctx, raw.ID, out, key, val)

		case *submission.Object:
			if prefix, ok := schema.AddressFields[key]; ok {
				flattenAddress(out, prefix, val)
				continue
			}
			selected := f.selected(ctx, raw.ID, key, val)
			if f.classification.CategoryOf(key) == schema.BuildingUse {
				selected = withOtherValues(selected, data, key+schema.OtherSuffix)
			}
			out[key] = strings.Join(selected, listSeparator)

		default:
			s, ok := submission.Scalar(val)
			if !ok {
				f.reporter.Report(ctx, anomaly.Errorf(anomaly.Flatten, raw.ID, key, "unsupported value type %T", val))
			}
			out[key] = s
		}
	}

	out[schema.IDField] = raw.ID
	out[schema.CreatedField] = raw.Created
	return out, nil
}

func exclusionOf(raw submission.Raw) *Exclusion {
	pt := raw.PermitType()
	switch {
	case raw.Data == nil || pt == "":
		return &Exclusion{SubmissionID: raw.ID, Status: StatusInvalid, Reason: "missing permit type"}
	case schema.IsResubmission(pt):
		return &Exclusion{SubmissionID: raw.ID, Status: StatusResubmission, Reason: "resubmission of permit type " + pt}
	}

	if status := raw.Data.Text(schema.SideChannelStatusField); schema.IsSideChannelFailure(status) {
		reason := strings.TrimSpace(raw.Data.Text(schema.SideChannelErrorField))
		if reason == "" {
			reason = "plan review upload failed"
		}
		return &Exclusion{SubmissionID: raw.ID, Status: strings.TrimSpace(status), Reason: reason}
	}
	return nil
}

func (f *Flattener) flattenList(ctx context.Context, id string, out FlatRecord, key string, list []any) {
	var parts []string
	for i, item := range list {
		obj, isObj := item.(*submission.Object)
		if !isObj {
			s, ok := submission.Scalar(item)
			if !ok {
				s = joinNested(item)
				f.reporter.Report(ctx, anomaly.Errorf(anomaly.Flatten, id, key, "nested list at index %d", i))
			}
			parts = append(parts, s)
			continue
		}
		if file, ok := submission.FileFrom(obj); ok {
			parts = append(parts, file.Name())
			continue
		}
		out[key+strconv.Itoa(i+1)] = joinNested(obj)
	}
	if len(parts) > 0 || len(list) == 0 {
		out[key] = strings.Join(parts, listSeparator)
	}
}

// selected returns the option keys of a multi-select object whose marker
// is set, in payload order.
func (f *Flattener) selected(ctx context.Context, id, field string, obj *submission.Object) []string {
	var keys []string
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		on, err := submission.DecodeMarker(v)
		if err != nil {
			f.reporter.Report(ctx, anomaly.Anomaly{Kind: anomaly.Flatten, SubmissionID: id, Field: field + "." + k, Err: err})
			continue
		}
		if on {
			keys = append(keys, k)
		}
	}
	return keys
}

// withOtherValues replaces the "other" option with the free-text values the
// applicant typed into the companion field.
func withOtherValues(selected []string, data *submission.Object, otherField string) []string {
	var others []string
	switch v, _ := data.Get(otherField); t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := submission.Scalar(item); ok && strings.TrimSpace(s) != "" {
				others = append(others, s)
			}
		}
	default:
		if s, ok := submission.Scalar(t); ok && strings.TrimSpace(s) != "" {
			others = append(others, s)
		}
	}

	out := make([]string, 0, len(selected)+len(others))
	for _, s := range selected {
		if s == "other" {
			out = append(out, others...)
			continue
		}
		out = append(out, s)
	}
	return out
}

func flattenAddress(out FlatRecord, prefix string, addr *submission.Object) {
	for _, part := range schema.AddressParts {
		v, _ := addr.Get(part.Key)
		out[prefix+part.Suffix] = joinNested(v)
	}
}

// joinNested renders any value as text, joining nested values with the
// list separator and skipping empty ones.
func joinNested(v any) string {
	if s, ok := submission.Scalar(v); ok {
		return s
	}
	var parts []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := joinNested(item); s != "" {
				parts = append(parts, s)
			}
		}
	case *submission.Object:
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			if s := joinNested(item); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, listSeparator)
}
