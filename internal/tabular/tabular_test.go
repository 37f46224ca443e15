package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestPrettyName(t *testing.T) {
	tests := map[string]string{
		"HelloWorld":           "Hello World",
		"applicantFirstName":   "Applicant First Name",
		"id":                   "Id",
		"created":              "Created",
		"projectAddressStreet": "Project Address Street",
	}
	for in, want := range tests {
		assert.Equal(t, want, PrettyName(in), "input %q", in)
	}
}

func TestDelimitedLineEndings(t *testing.T) {
	out := Delimited([]string{"A", "B"}, [][]string{{"1", "2"}, {"3", ""}}, Pipe)

	assert.Equal(t, "A|B\r\n1|2\r\n3|\r\n", out)
	assert.Equal(t, 3, strings.Count(out, LineTerminator))
	assert.False(t, strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n"))
}

func TestDelimitedQuotesOnlyDelimiter(t *testing.T) {
	out := Delimited([]string{"A"}, [][]string{{`say "hi"`}, {"a,b"}}, ',')

	assert.Equal(t, "A\r\nsay \"hi\"\r\n\"a,b\"\r\n", out)
}

func TestDelimitedQuotingRules(t *testing.T) {
	tests := []struct {
		name  string
		value string
		delim rune
		want  string
	}{
		{"pipe in pipe feed", "a|b", Pipe, `"a|b"`},
		{"comma in pipe feed", "a, b", Pipe, "a, b"},
		{"quote with delimiter", `5" pipe, fitting`, ',', `"5"" pipe, fitting"`},
		{"line break passes through", "a\nb", Pipe, "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Delimited([]string{"A"}, [][]string{{tt.value}}, tt.delim)
			assert.Equal(t, "A\r\n"+tt.want+"\r\n", out)
		})
	}
}

func TestDelimitedEmpty(t *testing.T) {
	assert.Equal(t, "Id|Created\r\n", Delimited(Header([]string{"id", "created"}), nil, Pipe))
}

func TestWorkbook(t *testing.T) {
	data, err := Workbook("New Submittals", []string{"Status", "Formio ID"}, [][]string{
		{"Success", "abc"},
		{"NOT PROCESSED", "def"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("New Submittals")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Status", "Formio ID"},
		{"Success", "abc"},
		{"NOT PROCESSED", "def"},
	}, rows)
}
