package reconcile

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// resultReader skips a leading UTF-8 byte-order mark. Result files are
// often saved by Windows tools that add one, which would otherwise hide the
// header token.
func resultReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// splitResultLine splits one result line into cleaned cells. Invalid UTF-8
// is replaced so error texts render in the summary.
func splitResultLine(line string) []string {
	line = strings.ToValidUTF8(strings.TrimRight(line, "\r"), "\uFFFD")
	fields := strings.Split(line, resultDelimiter)
	for i, f := range fields {
		fields[i] = cleanCell(f)
	}
	return fields
}

// cleanCell removes spreadsheet artifacts from a cell value: surrounding
// whitespace, an Excel formula prefix (="...") and surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
