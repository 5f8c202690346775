package photos

import (
	"strings"

	"github.com/grtshw/lead-dispatch/sheets"
)

// Normalize lowercases a name, trims it and collapses whitespace runs to single spaces.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Splitter breaks one CSV line into cells.
type Splitter func(line string) []string

// BuildIndex maps normalized names to photo URLs.
//
// The name column is the first header containing "name" and the photo column the first
// containing "photo", both case-insensitive. Rows missing either cell are skipped. A later
// row with the same normalized name replaces an earlier one.
func BuildIndex(text string, split Splitter) map[string]string {
	if split == nil {
		split = sheets.SplitRow
	}
	return indexLines(sheets.Lines(text), split)
}

// BuildNaiveIndex is BuildIndex with raw line feed splitting and sheets.SplitNaive.
// Carriage returns are left in place, so on CRLF exports the last cell of each row
// keeps its trailing "\r".
func BuildNaiveIndex(text string) map[string]string {
	return indexLines(strings.Split(text, "\n"), sheets.SplitNaive)
}

func indexLines(lines []string, split Splitter) map[string]string {
	index := make(map[string]string)
	if len(lines) == 0 {
		return index
	}

	headers := split(lines[0])
	nameCol, photoCol := -1, -1
	for i, h := range headers {
		h = strings.ToLower(h)
		if nameCol < 0 && strings.Contains(h, "name") {
			nameCol = i
		}
		if photoCol < 0 && strings.Contains(h, "photo") {
			photoCol = i
		}
	}
	if nameCol < 0 || photoCol < 0 {
		return index
	}

	for _, line := range lines[1:] {
		cells := split(line)
		if nameCol >= len(cells) || photoCol >= len(cells) {
			continue
		}
		name, photo := cells[nameCol], cells[photoCol]
		if name == "" || photo == "" {
			continue
		}
		index[Normalize(name)] = photo
	}

	return index
}
