package layout

import "strings"

// Wrap breaks text into lines of at most width runes, splitting on spaces and
// hard-splitting words longer than a line. Blank text yields no lines.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	var (
		lines   []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, string(current))
			current = current[:0]
		}
	}
	for _, word := range fields {
		runes := []rune(word)
		for len(runes) > width {
			flush()
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		switch {
		case len(current) == 0:
			current = append(current, runes...)
		case len(current)+1+len(runes) <= width:
			current = append(current, ' ')
			current = append(current, runes...)
		default:
			flush()
			current = append(current, runes...)
		}
	}
	flush()
	return lines
}
