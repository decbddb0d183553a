package pdf

import (
	"bytes"
	"compress/zlib"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

const maxInflatedStream = 32 << 20

var (
	streamKeyword    = []byte("stream")
	endstreamKeyword = []byte("endstream")
)

// ScanContentStreams walks the raw file for stream objects, inflates the ones
// that are Flate encoded and collects the operands of the text showing
// operators. It works on files whose cross-reference table is too damaged for
// the page reader.
func ScanContentStreams(payload []byte) string {
	var b strings.Builder
	for _, content := range contentStreams(payload) {
		collectShownText(content, &b)
		newline(&b)
	}
	return tidy(b.String())
}

func contentStreams(payload []byte) [][]byte {
	var out [][]byte
	rest := payload
	for {
		start := bytes.Index(rest, streamKeyword)
		if start < 0 {
			return out
		}
		body := rest[start+len(streamKeyword):]
		body = bytes.TrimPrefix(body, []byte("\r"))
		body = bytes.TrimPrefix(body, []byte("\n"))

		end := bytes.Index(body, endstreamKeyword)
		if end < 0 {
			return out
		}
		raw := body[:end]
		rest = body[end+len(endstreamKeyword):]

		if data, ok := inflate(raw); ok {
			out = append(out, data)
		} else if bytes.IndexByte(raw, 0) < 0 {
			out = append(out, raw)
		}
	}
}

func inflate(raw []byte) ([]byte, bool) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, maxInflatedStream))
	if err != nil && len(data) == 0 {
		return nil, false
	}
	return data, true
}

// collectShownText interprets just enough of a content stream to recover the
// strings passed to Tj, TJ, ' and ".
func collectShownText(content []byte, b *strings.Builder) {
	var (
		pending []string
		numbers []float64
		inArray bool
	)

	for i := 0; i < len(content); {
		c := content[i]
		switch {
		case isWhitespace(c):
			i++
		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteral(content, i+1)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(content) && content[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(content) && content[i+1] == '>':
			i += 2
		case c == '<':
			s, next := readHex(content, i+1)
			pending = append(pending, s)
			i = next
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case c == '/':
			i = skipToken(content, i+1)
		case c == '-' || c == '+' || c == '.' || isDigit(c):
			end := skipToken(content, i+1)
			if n, err := strconv.ParseFloat(string(content[i:end]), 64); err == nil {
				numbers = append(numbers, n)
				// Large negative kerning inside TJ arrays separates words.
				if inArray && n < -200 {
					pending = append(pending, " ")
				}
			}
			i = end
		default:
			end := skipToken(content, i+1)
			op := string(content[i:end])
			i = end

			switch op {
			case "Tj", "TJ":
				b.WriteString(strings.Join(pending, ""))
			case "'", "\"":
				newline(b)
				b.WriteString(strings.Join(pending, ""))
			case "T*", "ET":
				newline(b)
			case "Td", "TD":
				if len(numbers) >= 2 && numbers[len(numbers)-1] != 0 {
					newline(b)
				} else {
					space(b)
				}
			}
			pending = pending[:0]
			numbers = numbers[:0]
		}
	}
}

func readLiteral(content []byte, i int) (string, int) {
	var raw []byte
	depth := 1
	for i < len(content) {
		c := content[i]
		i++
		switch c {
		case '\\':
			if i >= len(content) {
				break
			}
			esc := content[i]
			i++
			switch esc {
			case 'n':
				raw = append(raw, '\n')
			case 'r':
				raw = append(raw, '\r')
			case 't':
				raw = append(raw, '\t')
			case 'b':
				raw = append(raw, '\b')
			case 'f':
				raw = append(raw, '\f')
			case '\r':
				if i < len(content) && content[i] == '\n' {
					i++
				}
			case '\n':
			default:
				if esc >= '0' && esc <= '7' {
					value := int(esc - '0')
					for n := 0; n < 2 && i < len(content) && content[i] >= '0' && content[i] <= '7'; n++ {
						value = value*8 + int(content[i]-'0')
						i++
					}
					raw = append(raw, byte(value))
				} else {
					raw = append(raw, esc)
				}
			}
		case '(':
			depth++
			raw = append(raw, c)
		case ')':
			depth--
			if depth == 0 {
				return decodeString(raw), i
			}
			raw = append(raw, c)
		default:
			raw = append(raw, c)
		}
	}
	return decodeString(raw), i
}

func readHex(content []byte, i int) (string, int) {
	var digits []byte
	for i < len(content) && content[i] != '>' {
		if c := content[i]; isHexDigit(c) {
			digits = append(digits, c)
		}
		i++
	}
	if i < len(content) {
		i++
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	raw := make([]byte, len(digits)/2)
	for j := range raw {
		v, _ := strconv.ParseUint(string(digits[2*j:2*j+2]), 16, 8)
		raw[j] = byte(v)
	}
	return decodeString(raw), i
}

// decodeString turns a PDF string into text. Strings with a UTF-16 byte order
// mark are decoded as such, everything else as Windows-1252, which matches
// PDFDocEncoding for the characters used in Portuguese.
func decodeString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, (len(raw)-2)/2)
		for j := 2; j+1 < len(raw); j += 2 {
			units = append(units, uint16(raw[j])<<8|uint16(raw[j+1]))
		}
		return string(utf16.Decode(units))
	}
	text, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(text)
}

func skipToken(content []byte, i int) int {
	for i < len(content) && !isWhitespace(content[i]) && !isDelimiter(content[i]) {
		i++
	}
	return i
}

func newline(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}

func space(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") && !strings.HasSuffix(s, " ") {
		b.WriteByte(' ')
	}
}

// tidy trims every line and drops runs of blank lines.
func tidy(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
