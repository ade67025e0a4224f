package comment

import (
	"fmt"
	"strings"
	"unicode"
)

// markerTag identifies comments posted by this action.
const markerTag = "pyright-analysis-action"

// Field is one named entry of a comment context. A nil Value is left out of the marker.
type Field struct {
	Name  string
	Value *string
}

// Set returns a field that is always part of the marker, even when value is empty.
func Set(name, value string) Field {
	return Field{Name: name, Value: &value}
}

// Optional returns a field that is left out of the marker when value is empty.
func Optional(name, value string) Field {
	if value == "" {
		return Field{Name: name}
	}
	return Set(name, value)
}

// Context distinguishes comments of different workflows or jobs on the same pull
// request. Field order is significant.
type Context []Field

// Marker renders the HTML comment embedded in every comment body, for example
// <!-- pyright-analysis-action workflow='CI', jobid='types' -->.
// The same context always renders to the same bytes.
func (c Context) Marker() string {
	pairs := make([]string, 0, len(c))
	for _, f := range c {
		if f.Value == nil {
			continue
		}
		pairs = append(pairs, f.Name+"="+quote(*f.Value))
	}
	return fmt.Sprintf("<!-- %s %s -->", markerTag, strings.Join(pairs, ", "))
}

// quote renders s as a single-quoted literal, switching to double quotes when s holds
// a single quote but no double quote. Markers written by earlier releases of the action
// use this exact form, so it must not change.
func quote(s string) string {
	q := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var b strings.Builder
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case !unicode.IsPrint(r):
			switch {
			case r <= 0xff:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r <= 0xffff:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}
