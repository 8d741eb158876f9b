package render

import (
	"regexp"
	"strings"
)

var htmlOpen = regexp.MustCompile(`(?i)<html(?:\s[^>]*)?>`)

// finalize applies the root-only rewrites: content trailing the document close
// tag moves before </body>, then head and body injections are inserted.
func finalize(out string, styles, scripts, head *OrderedSet) string {
	out = relocateTrailing(out)
	out = injectHead(out, styles.String()+head.String())
	return injectBody(out, scripts.String())
}

func relocateTrailing(out string) string {
	lower := strings.ToLower(out)
	end := strings.LastIndex(lower, "</html>")
	if end < 0 {
		return out
	}
	trailing := out[end+len("</html>"):]
	if strings.TrimSpace(trailing) == "" {
		return out
	}
	doc := out[:end+len("</html>")]
	body := strings.LastIndex(strings.ToLower(doc), "</body>")
	if body < 0 {
		return out
	}
	return doc[:body] + trailing + doc[body:]
}

func injectHead(out, content string) string {
	if content == "" {
		return out
	}
	if i := strings.Index(strings.ToLower(out), "</head>"); i >= 0 {
		return out[:i] + content + out[i:]
	}
	head := "<head>" + content + "</head>"
	if loc := htmlOpen.FindStringIndex(out); loc != nil {
		return out[:loc[1]] + head + out[loc[1]:]
	}
	return head + out
}

func injectBody(out, content string) string {
	if content == "" {
		return out
	}
	if i := strings.LastIndex(strings.ToLower(out), "</body>"); i >= 0 {
		return out[:i] + content + out[i:]
	}
	return out + content
}
