package dfxml

import "strings"

// Escape makes s safe for XML text content and attribute values. Markup
// characters become entities; NUL, CR, LF and TAB are percent-encoded so
// records stay on one line. A literal '%' becomes %25 so that Unescape
// recovers the input exactly.
func Escape(s string) string {
	if !strings.ContainsAny(s, "<>&'\"\x00\r\n\t%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '\'':
			b.WriteString("&apos;")
		case '"':
			b.WriteString("&quot;")
		case 0:
			b.WriteString("%00")
		case '\r':
			b.WriteString("%0D")
		case '\n':
			b.WriteString("%0A")
		case '\t':
			b.WriteString("%09")
		case '%':
			b.WriteString("%25")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var entities = []struct {
	ref string
	ch  byte
}{
	{"&lt;", '<'},
	{"&gt;", '>'},
	{"&amp;", '&'},
	{"&apos;", '\''},
	{"&quot;", '"'},
}

// Unescape reverses Escape. Unknown entity or percent sequences are left
// as they are.
func Unescape(s string) string {
	if !strings.ContainsAny(s, "&%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '&':
			if ch, n := matchEntity(s[i:]); n > 0 {
				b.WriteByte(ch)
				i += n - 1
				continue
			}
		case '%':
			if ch, ok := matchPercent(s[i:]); ok {
				b.WriteByte(ch)
				i += 2
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// unpercent decodes only the percent encodings. The tokenizer has
// already resolved entities in character data handed to the reader.
func unpercent(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			if ch, ok := matchPercent(s[i:]); ok {
				b.WriteByte(ch)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func matchEntity(s string) (byte, int) {
	for _, e := range entities {
		if strings.HasPrefix(s, e.ref) {
			return e.ch, len(e.ref)
		}
	}
	return 0, 0
}

func matchPercent(s string) (byte, bool) {
	if len(s) < 3 {
		return 0, false
	}
	switch strings.ToUpper(s[1:3]) {
	case "00":
		return 0, true
	case "0D":
		return '\r', true
	case "0A":
		return '\n', true
	case "09":
		return '\t', true
	case "25":
		return '%', true
	}
	return 0, false
}

// Strip derives a tag-safe token from arbitrary text: printable ASCII
// only, markup characters dropped, letters lower-cased, spaces mapped
// to '_'.
func Strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e || strings.IndexByte("<>\r\n&'\"", c) >= 0 {
			continue
		}
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
