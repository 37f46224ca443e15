package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/handoff"
	"github.com/JonMunkholm/permits/internal/submission"
)

func rawSubmission(t *testing.T, id, created, data string) submission.Raw {
	t.Helper()
	var obj submission.Object
	require.NoError(t, json.Unmarshal([]byte(data), &obj))
	return submission.Raw{ID: id, Created: created, Data: &obj}
}

type statusRecorder struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (s *statusRecorder) update(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return s.err
}

func snapshot(raws ...submission.Raw) map[string]submission.Raw {
	out := make(map[string]submission.Raw, len(raws))
	for _, r := range raws {
		out[r.ID] = r
	}
	return out
}

func TestRunMatchesRows(t *testing.T) {
	a := rawSubmission(t, "5f3a9c0e1d2b", "2020-08-17T16:54:48.000Z", `{
		"permitType": "newConstruction",
		"applicantFirstName": "Ada",
		"applicantLastName": "Lovelace",
		"applicantEmail": "ada@example.org",
		"projectAddressNumber": "49",
		"projectAddressStreetName": "South Van Ness",
		"projectAddressNumberSuffix": "A",
		"bluebeamId": "123-456",
		"requiredUploads": [
			{"originalName": "plans.pdf", "url": "https://storage.example/bucket/plans-1.pdf"}
		]
	}`)
	b := rawSubmission(t, "5f3a9c0e1d2c", "2020-08-17T17:00:00.000Z", `{"permitType": "alterations"}`)

	rec := &anomaly.Recorder{}
	status := &statusRecorder{}
	r := New(Options{
		StorageURLPrefix: "https://storage.example/bucket/",
		PublicURLPrefix:  "https://permits.example/files/",
		UpdateStatus:     status.update,
		Reporter:         rec,
	})

	result := strings.Join([]string{
		"FORMIO|STATUS|ERROR",
		"5F3A9C0E1D2B|Success|",
		"5f3a9c0e1d2c|Error|Invalid block/lot",
		"ffffffffffff|Success|",
		"",
	}, "\r\n")

	sum, err := r.Run(context.Background(), strings.NewReader(result), Inputs{Snapshot: snapshot(a, b)})
	require.NoError(t, err)

	require.Len(t, sum.Rows, 2)
	assert.Equal(t, 2, sum.Matched)
	assert.Equal(t, []string{"ffffffffffff"}, sum.Unmatched)
	assert.Equal(t, 1, rec.Count(anomaly.ResultRow))

	first := sum.Rows[0]
	assert.Equal(t, "Success", first.Status)
	assert.Equal(t, "5f3a9c0e1d2b", first.SubmissionID)
	assert.Equal(t, "Ada Lovelace", first.ApplicantName)
	assert.Equal(t, "A", first.StreetSuffix)
	assert.Equal(t, "123-456", first.BluebeamID)
	assert.Equal(t, []FileLink{{Name: "plans.pdf", URL: "https://permits.example/files/plans-1.pdf"}}, first.Files)

	assert.Equal(t, "Error", sum.Rows[1].Status)
	assert.Equal(t, "Invalid block/lot", sum.Rows[1].Error)
	assert.Empty(t, sum.Rows[1].Files)

	assert.Equal(t, []string{"5f3a9c0e1d2b"}, status.ids)

	assert.Contains(t, sum.HTML, `<a href="https://permits.example/files/plans-1.pdf">plans.pdf</a>`)
	assert.Contains(t, sum.HTML, "<th>Integration Status</th>")
}

func TestRunUnmatchedOnlyProducesNoRows(t *testing.T) {
	r := New(Options{})

	sum, err := r.Run(context.Background(), strings.NewReader("FORMIO|STATUS|ERROR\nnope|Success|\n"), Inputs{})
	require.NoError(t, err)
	assert.Empty(t, sum.Rows)
	assert.Equal(t, []string{"nope"}, sum.Unmatched)
}

func TestRunStatusUpdateFailureIsReported(t *testing.T) {
	a := rawSubmission(t, "abc", "2020-08-17T16:54:48.000Z", `{"permitType": "alterations"}`)
	rec := &anomaly.Recorder{}
	status := &statusRecorder{err: errors.New("502 bad gateway")}

	r := New(Options{UpdateStatus: status.update, Reporter: rec})
	sum, err := r.Run(context.Background(), strings.NewReader("abc|Success|\n"), Inputs{Snapshot: snapshot(a)})
	require.NoError(t, err)

	require.Len(t, sum.Rows, 1)
	assert.Equal(t, "Success", sum.Rows[0].Status)
	assert.Equal(t, 1, rec.Count(anomaly.StatusUpdate))
}

func TestRunMergesUnprocessed(t *testing.T) {
	exported := rawSubmission(t, "a1", "2020-08-17T16:00:00.000Z", `{"permitType": "alterations"}`)
	resub := rawSubmission(t, "r1", "2020-08-17T15:00:00.000Z", `{"permitType": "existingPermitApplication"}`)
	failed := rawSubmission(t, "f1", "2020-08-17T14:00:00.000Z", `{"permitType": "alterations", "bluebeamStatus": "Failed"}`)
	addendum := rawSubmission(t, "d1", "2020-08-17T13:00:00.000Z", `{"permitType": "addenda"}`)

	r := New(Options{})
	sum, err := r.Run(context.Background(), strings.NewReader("a1|Success|\n"), Inputs{
		Snapshot: snapshot(exported, resub, failed),
		Addenda:  []submission.Raw{addendum, exported},
		Failures: []handoff.Failure{
			{SubmissionID: "f1", Status: "Failed", Reason: "plan review upload timed out"},
			{SubmissionID: "r1", Status: "Resubmission", Reason: "resubmission"},
			{SubmissionID: "old", Status: "Failed", Reason: "previous batch"},
		},
	})
	require.NoError(t, err)

	got := make([][2]string, len(sum.Rows))
	for i, row := range sum.Rows {
		got[i] = [2]string{row.SubmissionID, row.Status}
	}
	assert.Equal(t, [][2]string{
		{"a1", "Success"},
		{"d1", NotProcessed},
		{"r1", NotProcessed},
		{"f1", "Failed"},
	}, got)
	assert.Equal(t, "plan review upload timed out", sum.Rows[3].Error)
}

func TestClassify(t *testing.T) {
	index := map[string]submission.Raw{"abc": {ID: "ABC"}}

	_, state := classify([]string{" formio ", "STATUS"}, index)
	assert.Equal(t, SkipHeader, state)

	raw, state := classify([]string{"Abc", "Success"}, index)
	assert.Equal(t, MatchFound, state)
	assert.Equal(t, "ABC", raw.ID)

	_, state = classify([]string{"zzz"}, index)
	assert.Equal(t, MatchMissing, state)

	assert.Equal(t, "MergingAddenda", MergingAddenda.String())
}

func TestSummaryEscapesHTML(t *testing.T) {
	var buf bytes.Buffer
	err := SummaryTable([]TrackerRow{{Status: "Error", Error: `<script>alert("x")</script>`}}).Render(context.Background(), &buf)
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestSummaryTableLayout(t *testing.T) {
	var buf bytes.Buffer
	err := SummaryTable([]TrackerRow{{
		Status:       "Success",
		SubmissionID: "abc",
		Files: []FileLink{
			{Name: "plans.pdf", URL: "https://permits.example/files/plans.pdf"},
			{Name: "site.pdf", URL: "https://permits.example/files/site.pdf"},
		},
	}}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.True(t, strings.HasPrefix(html, `<table border="1" cellpadding="4" cellspacing="0"><thead><tr><th>Integration Status</th>`))
	assert.Equal(t, len(TrackerColumns), strings.Count(html, "<th>"))
	assert.Equal(t, len(TrackerColumns), strings.Count(html, "<td>"))
	assert.Contains(t, html, `<td>Success</td>`)
	assert.Contains(t, html,
		`<td><a href="https://permits.example/files/plans.pdf">plans.pdf</a><br><a href="https://permits.example/files/site.pdf">site.pdf</a></td></tr>`)
	assert.True(t, strings.HasSuffix(html, "</tbody></table>"))
}

func TestWorkbook(t *testing.T) {
	data, err := Workbook([]TrackerRow{{
		Status:       "Success",
		SubmissionID: "abc",
		Files:        []FileLink{{Name: "plans.pdf", URL: "https://permits.example/files/plans.pdf"}},
	}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(TrackerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, TrackerColumns, rows[0])
	assert.Equal(t, "abc", rows[1][2])
	assert.Equal(t, "plans.pdf (https://permits.example/files/plans.pdf)", rows[1][12])
}

func TestRunCleansResultFile(t *testing.T) {
	snapshot := map[string]submission.Raw{
		"abc": {ID: "abc", Created: "2020-08-17T16:54:48.000Z", Data: submission.NewObject()},
	}
	rec := &anomaly.Recorder{}
	r := New(Options{Reporter: rec})

	result := "\xEF\xBB\xBFFORMIO|STATUS|ERROR\r\n" +
		`="abc"|"Error"|bad byte ` + "\xff\r\n"
	sum, err := r.Run(context.Background(), strings.NewReader(result), Inputs{Snapshot: snapshot})
	require.NoError(t, err)

	require.Len(t, sum.Rows, 1)
	assert.Equal(t, 1, sum.Matched)
	assert.Empty(t, sum.Unmatched)
	assert.Equal(t, "Error", sum.Rows[0].Status)
	assert.Equal(t, "bad byte �", sum.Rows[0].Error)
}

func TestCleanCell(t *testing.T) {
	tests := map[string]string{
		"  abc ":     "abc",
		`="00123"`:   "00123",
		"=123":       "123",
		`"quoted"`:   "quoted",
		"'single'":   "single",
		"plain text": "plain text",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanCell(in), "cleanCell(%q)", in)
	}
}
