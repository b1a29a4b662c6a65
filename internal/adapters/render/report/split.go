package report

import "strings"

// MessageLimit is the largest text a chat transport accepts in one message.
const MessageLimit = 4000

// SplitLines packs lines into chunks no longer than limit. Lines are never
// broken unless one alone exceeds the limit.
func SplitLines(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	if len(text) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, len(text)/limit+1)
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			flush()
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if current.Len() > 0 && current.Len()+1+len(line) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()
	return chunks
}
