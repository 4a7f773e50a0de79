package util

import (
	"html/template"
	"strings"
)

// EnrichBody renders a message body as HTML: escaped text, one line per
// <br/>, with ">" lines wrapped as quotes.
func EnrichBody(body string) string {
	var b strings.Builder
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, rawLine := range lines {
		outLine := template.HTMLEscapeString(rawLine)
		if strings.HasPrefix(rawLine, ">") {
			outLine = `<span class="quote">` + outLine + `</span>`
		}

		if i != 0 {
			b.WriteString("<br/>")
		}
		b.WriteString(outLine)
	}
	return b.String()
}

// FormatDate renders a stored message date as a long date with time.
// Values that do not parse are returned unchanged.
func FormatDate(value string) string {
	t, err := parseDate(value)
	if err != nil {
		return value
	}
	return t.Format("January 2, 2006 at 3:04:05 PM")
}
