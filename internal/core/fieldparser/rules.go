package fieldparser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Capture selects how a matched label's value is collected.
type Capture int

const (
	// RestOfLine takes the text after the label separator, or the next
	// non-empty line when the label stands alone.
	RestOfLine Capture = iota
	// Block takes the lines after a heading up to a blank line, the next
	// all-caps heading or the end of text.
	Block
	// Paragraphs takes the lines after a heading up to the next all-caps
	// heading or the end of text, keeping paragraph breaks.
	Paragraphs
)

// Rule is one extraction rule: the synonyms are tried in order and the first
// one found anywhere in the text wins.
type Rule struct {
	Field    string
	Synonyms []string
	Capture  Capture
}

// Find evaluates the rule against text.
func (r Rule) Find(text string) (string, bool) {
	lines := splitLines(text)
	for _, synonym := range r.Synonyms {
		for i, line := range lines {
			inline, ok := matchLabel(line, synonym)
			if !ok {
				continue
			}
			var value string
			switch r.Capture {
			case Block:
				value = collectSection(lines, i+1, inline, true)
			case Paragraphs:
				value = collectSection(lines, i+1, inline, false)
			default:
				value = inline
				if value == "" {
					value = nextValueLine(lines, i+1)
				}
			}
			if value != "" {
				return value, true
			}
		}
	}
	return "", false
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	return strings.Split(text, "\n")
}

// matchLabel reports whether line starts with the label followed by a
// separator (or nothing) and returns the inline value.
func matchLabel(line, label string) (string, bool) {
	trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*·>"))
	lowerLine := strings.ToLower(trimmed)
	lowerLabel := strings.ToLower(label)
	if lowerLabel == "" || !strings.HasPrefix(lowerLine, lowerLabel) {
		return "", false
	}

	rest := lowerLine[len(lowerLabel):]
	if len(lowerLine) == len(trimmed) {
		rest = trimmed[len(lowerLabel):]
	}
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return "", true
	}

	r, size := utf8.DecodeRuneInString(rest)
	switch r {
	case ':', '-', '–', '—', '=':
		return strings.TrimSpace(rest[size:]), true
	default:
		return "", false
	}
}

func nextValueLine(lines []string, from int) string {
	for i := from; i < len(lines); i++ {
		candidate := strings.TrimSpace(lines[i])
		if candidate == "" {
			continue
		}
		if isHeading(candidate) {
			return ""
		}
		return candidate
	}
	return ""
}

func collectSection(lines []string, from int, inline string, stopAtBlank bool) string {
	collected := make([]string, 0, 8)
	if inline != "" {
		collected = append(collected, inline)
	}

	i := from
	if len(collected) == 0 {
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}

	blankPending := false
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if stopAtBlank {
				break
			}
			blankPending = len(collected) > 0
			continue
		}
		if isHeading(line) {
			break
		}
		if blankPending {
			collected = append(collected, "")
			blankPending = false
		}
		collected = append(collected, line)
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

// isHeading reports whether line is an all-capitals heading. Lines carrying a
// "LABEL: value" pair are not headings.
func isHeading(line string) bool {
	if idx := strings.IndexByte(line, ':'); idx >= 0 && strings.TrimSpace(line[idx+1:]) != "" {
		return false
	}
	letters := 0
	for _, r := range line {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 3
}
