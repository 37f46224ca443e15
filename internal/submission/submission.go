package submission

import (
	"fmt"
	"path"
	"strings"
)

// Raw is one submission as returned by the forms API.
type Raw struct {
	ID       string  `json:"_id"`
	Created  string  `json:"created"`
	Modified string  `json:"modified,omitempty"`
	Data     *Object `json:"data"`
}

// PermitType returns the permit type the applicant selected.
func (r Raw) PermitType() string {
	return strings.TrimSpace(r.Data.Text("permitType"))
}

// FileUpload is a reference to a file attached to a submission.
type FileUpload struct {
	URL          string
	OriginalName string
	Storage      string
}

// Name returns the name the file was uploaded with, falling back to the
// last segment of its URL.
func (f FileUpload) Name() string {
	if f.OriginalName != "" {
		return f.OriginalName
	}
	if f.URL == "" {
		return ""
	}
	u := f.URL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Base(u)
}

// FileFrom reports whether v describes an uploaded file and returns it.
func FileFrom(v any) (FileUpload, bool) {
	obj, ok := v.(*Object)
	if !ok {
		return FileUpload{}, false
	}
	_, hasName := obj.Get("originalName")
	_, hasURL := obj.Get("url")
	if !hasName && !hasURL {
		return FileUpload{}, false
	}
	return FileUpload{
		URL:          obj.Text("url"),
		OriginalName: obj.Text("originalName"),
		Storage:      obj.Text("storage"),
	}, true
}

// DecodeMarker interprets the per-option selection marker of a multi-select
// field. Only the exact strings "TRUE" and "FALSE", JSON booleans and
// absent values are recognized.
func DecodeMarker(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		switch t {
		case "TRUE":
			return true, nil
		case "FALSE", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("unrecognized selection marker %v", v)
}
