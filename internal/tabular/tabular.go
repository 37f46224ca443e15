// Package tabular writes rows as delimited text and as spreadsheets.
package tabular

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LineTerminator ends every row of delimited output, including the last.
const LineTerminator = "\r\n"

// Pipe is the delimiter of the permit tracking import feed.
const Pipe = '|'

// PrettyName turns a camelCase field name into a Title Case header.
// "applicantFirstName" becomes "Applicant First Name".
func PrettyName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(b.String())
}

// Header converts field names to display headers.
func Header(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = PrettyName(f)
	}
	return out
}

// Delimited renders header and rows separated by delim. A value is quoted,
// with inner quotes doubled, only when it contains the delimiter. Quotes and
// line breaks elsewhere are written as is; the formatter strips line breaks
// before records get here.
func Delimited(header []string, rows [][]string, delim rune) string {
	var b strings.Builder
	writeRow(&b, header, delim)
	for _, row := range rows {
		writeRow(&b, row, delim)
	}
	return b.String()
}

func writeRow(b *strings.Builder, row []string, delim rune) {
	for i, v := range row {
		if i > 0 {
			b.WriteRune(delim)
		}
		if strings.ContainsRune(v, delim) {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(v, `"`, `""`))
			b.WriteByte('"')
			continue
		}
		b.WriteString(v)
	}
	b.WriteString(LineTerminator)
}

// Workbook renders header and rows as a single-sheet XLSX document.
func Workbook(sheet string, header []string, rows [][]string) (_ []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("tabular: name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("tabular: write header: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return nil, fmt.Errorf("tabular: write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("tabular: encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
