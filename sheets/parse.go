// Package sheets fetches spreadsheet CSV exports and turns them into header-keyed records.
//
// The parser is intentionally line based: quoted fields may contain commas but not
// newlines, and a doubled quote inside a quoted field is not treated as a literal quote.
package sheets

import (
	"strings"
)

// Lines splits CSV text on line feeds, dropping a trailing carriage return from each line.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// SplitLine splits one CSV line on commas that are not inside double quotes.
// Every quote character flips the quoted state and is kept in the field text.
// Each field is trimmed of surrounding whitespace.
func SplitLine(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			field.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}

	return append(fields, strings.TrimSpace(field.String()))
}

// SplitRow is SplitLine with all quote characters removed from the resulting fields.
func SplitRow(line string) []string {
	fields := SplitLine(line)
	for i, f := range fields {
		fields[i] = stripQuotes(f)
	}
	return fields
}

// SplitNaive splits on every comma with no quote handling and no trimming.
func SplitNaive(line string) []string {
	return strings.Split(line, ",")
}

// Parse turns CSV text into records keyed by the first line.
// Blank lines are skipped. Rows shorter than the header are padded with empty strings
// and cells past the last header are ignored.
func Parse(text string) []Record {
	lines := Lines(text)

	headerAt := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return []Record{}
	}

	headers := SplitRow(lines[headerAt])
	records := make([]Record, 0, len(lines)-headerAt-1)
	for _, line := range lines[headerAt+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, newRecord(headers, SplitRow(line)))
	}

	return records
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
