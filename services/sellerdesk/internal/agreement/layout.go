package agreement

import "strings"

// WrapText splits a paragraph into lines that fit maxWidth, measuring each
// candidate line with the supplied metric function. Breaks happen only at
// whitespace; a single word wider than maxWidth is placed alone on its own
// line rather than split or truncated.
func WrapText(text string, maxWidth float64, measure func(string) float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := ""
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line != "" && measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
