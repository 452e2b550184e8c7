package csvimport

import "bytes"

var candidateDelimiters = []rune{',', '\t', '|', ';'}

// detectDelimiter picks the candidate that occurs most often, outside quotes,
// on the header line. Ties go to the earlier candidate; comma is the default.
func detectDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		header = data[:i]
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range string(header) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
