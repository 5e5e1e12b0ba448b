package emit

import (
	"regexp"
	"strings"
)

// markdownSpecials matches the characters that carry meaning in Markdown
// and must be backslash-escaped in literal text.
var markdownSpecials = regexp.MustCompile("([\\\\`*_{}\\[\\]()#+\\-.!])")

// inlineHTMLTag matches an inline HTML tag so escaping can skip over it.
var inlineHTMLTag = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(?:\s[^<>]*)?/?>`)

// escapeMarkdown backslash-escapes Markdown control characters. Text inside
// inline HTML tags is left alone so emitted spans and images survive.
func escapeMarkdown(s string) string {
	tags := inlineHTMLTag.FindAllStringIndex(s, -1)
	if tags == nil {
		return markdownSpecials.ReplaceAllString(s, `\$1`)
	}

	var b strings.Builder
	last := 0
	for _, t := range tags {
		b.WriteString(markdownSpecials.ReplaceAllString(s[last:t[0]], `\$1`))
		b.WriteString(s[t[0]:t[1]])
		last = t[1]
	}
	b.WriteString(markdownSpecials.ReplaceAllString(s[last:], `\$1`))
	return b.String()
}

// escapeTableCell keeps rendered cell text on one table row: newlines
// would end the row and unescaped pipes would end the cell. Markup
// escaping is the run renderer's job before the text gets here.
func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// splitPadding separates leading and trailing whitespace from text so
// emphasis markers can hug the visible characters.
func splitPadding(s string) (lead, core, trail string) {
	core = strings.TrimLeft(s, " \t")
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRight(core, " \t")
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}
