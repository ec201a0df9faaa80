package llm

import (
	"strings"
	"unicode/utf8"
)

// Wrap breaks each paragraph of text into lines of at most width runes.
// Words longer than width get a line of their own. Empty lines are kept.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	paragraphs := strings.Split(text, "\n")
	for i, para := range paragraphs {
		var b strings.Builder
		col := 0
		for _, w := range strings.Fields(para) {
			n := utf8.RuneCountInString(w)
			switch {
			case col == 0:
			case col+1+n > width:
				b.WriteByte('\n')
				col = 0
			default:
				b.WriteByte(' ')
				col++
			}
			b.WriteString(w)
			col += n
		}
		paragraphs[i] = b.String()
	}
	return strings.Join(paragraphs, "\n")
}

var quotePairs = [][2]string{{`"`, `"`}, {"“", "”"}}

// CleanText removes a surrounding markdown fence and wrapping quotes from a
// model answer.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	if _, after, ok := strings.Cut(text, "```"); ok {
		// A fence line with a single token carries a language tag.
		if tag, body, ok := strings.Cut(after, "\n"); ok && !strings.ContainsRune(tag, ' ') {
			after = body
		}
		if i := strings.LastIndex(after, "```"); i >= 0 {
			after = after[:i]
		}
		text = strings.TrimSpace(after)
	}

	for _, q := range quotePairs {
		if len(text) >= len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			text = strings.TrimSpace(text[len(q[0]) : len(text)-len(q[1])])
			break
		}
	}
	return text
}

// Truncate limits s to maxLen runes and marks the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
