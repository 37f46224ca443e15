package reconcile

import (
	"strings"

	"github.com/JonMunkholm/permits/internal/schema"
	"github.com/JonMunkholm/permits/internal/submission"
	"github.com/JonMunkholm/permits/internal/tabular"
)

// TrackerSheet names the worksheet of the tracker workbook.
const TrackerSheet = "New Submittals"

// TrackerColumns are the tracker headers, in row order.
var TrackerColumns = []string{
	"Integration Status",
	"Error",
	"Formio ID",
	"Permit Type",
	"Applicant",
	"Applicant Email",
	"Applicant Phone",
	"Street #",
	"Street Name",
	"SFX",
	"BB Project ID",
	"Submitted",
	"Uploads",
}

// FileLink is an uploaded document reachable from the tracker.
type FileLink struct {
	Name string
	URL  string
}

// TrackerRow is one line of the reconciliation summary.
type TrackerRow struct {
	Status         string
	Error          string
	SubmissionID   string
	PermitType     string
	ApplicantName  string
	ApplicantEmail string
	ApplicantPhone string
	StreetNumber   string
	StreetName     string
	StreetSuffix   string
	BluebeamID     string
	Submitted      string
	Files          []FileLink
}

// Values returns the row in TrackerColumns order. Files are listed as
// "name (url)" separated by newlines.
func (r TrackerRow) Values() []string {
	files := make([]string, len(r.Files))
	for i, f := range r.Files {
		files[i] = f.Name + " (" + f.URL + ")"
	}
	return []string{
		r.Status,
		r.Error,
		r.SubmissionID,
		r.PermitType,
		r.ApplicantName,
		r.ApplicantEmail,
		r.ApplicantPhone,
		r.StreetNumber,
		r.StreetName,
		r.StreetSuffix,
		r.BluebeamID,
		r.Submitted,
		strings.Join(files, "\n"),
	}
}

// textCells returns the plain text columns; the summary table renders the
// uploads column as links.
func (r TrackerRow) textCells() []string {
	v := r.Values()
	return v[:len(v)-1]
}

// Workbook renders rows as the tracker spreadsheet.
func Workbook(rows []TrackerRow) ([]byte, error) {
	values := make([][]string, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}
	return tabular.Workbook(TrackerSheet, TrackerColumns, values)
}

// rowFor enriches a tracker row from the submission payload.
func (r *Reconciler) rowFor(raw submission.Raw, status, errText string) TrackerRow {
	d := raw.Data
	name := strings.TrimSpace(d.Text("applicantFirstName") + " " + d.Text("applicantLastName"))
	return TrackerRow{
		Status:         status,
		Error:          errText,
		SubmissionID:   raw.ID,
		PermitType:     raw.PermitType(),
		ApplicantName:  name,
		ApplicantEmail: d.Text("applicantEmail"),
		ApplicantPhone: d.Text("applicantPhoneNumber"),
		StreetNumber:   d.Text("projectAddressNumber"),
		StreetName:     d.Text("projectAddressStreetName"),
		StreetSuffix:   d.Text("projectAddressNumberSuffix"),
		BluebeamID:     d.Text(schema.SideChannelIDField),
		Submitted:      raw.Created,
		Files:          r.links(d),
	}
}

func (r *Reconciler) links(d *submission.Object) []FileLink {
	var out []FileLink
	for _, field := range schema.UploadFields {
		v, ok := d.Get(field)
		if !ok {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			file, ok := submission.FileFrom(item)
			if !ok || file.URL == "" {
				continue
			}
			out = append(out, FileLink{Name: file.Name(), URL: r.publicURL(file.URL)})
		}
	}
	return out
}

// publicURL rewrites a storage URL to the public download location.
func (r *Reconciler) publicURL(u string) string {
	prefix := r.opts.StorageURLPrefix
	if prefix == "" || !strings.HasPrefix(u, prefix) {
		return u
	}
	return r.opts.PublicURLPrefix + strings.TrimPrefix(u, prefix)
}
