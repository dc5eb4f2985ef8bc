// Package markdown converts raw markdown (with optional YAML front matter)
// into sanitized HTML. Rendering never fails: when the engine rejects the
// input, a minimal escape-and-linebreak transform is used instead.
package markdown

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	engine     goldmark.Markdown
	policy     *bluemonday.Policy
	initOnce   sync.Once
	blankRunRe = regexp.MustCompile(`\n{2,}`)
)

// The engine and policy are configured once and shared; goldmark.Convert and
// bluemonday.Sanitize are both safe for concurrent use.
func setup() {
	initOnce.Do(func() {
		engine = goldmark.New(goldmark.WithExtensions(extension.GFM))
		policy = bluemonday.UGCPolicy()
	})
}

// Render converts markdown text into sanitized HTML. Front matter is
// stripped first. The result is always a string, never an error.
func Render(text string) string {
	setup()
	body := StripFrontMatter(text)

	var buf bytes.Buffer
	if err := engine.Convert([]byte(body), &buf); err != nil {
		return policy.Sanitize(fallback(body))
	}
	return policy.Sanitize(buf.String())
}

// StripFrontMatter removes a leading YAML front-matter block delimited by
// "---" lines. Without a closing delimiter the whole text is treated as
// front matter and an empty body is returned.
func StripFrontMatter(text string) string {
	const delim = "---"
	if !strings.HasPrefix(text, delim) {
		return text
	}
	end := strings.Index(text[len(delim):], "\n"+delim)
	if end < 0 {
		return ""
	}
	rest := text[len(delim)+end+1+len(delim):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = ""
	}
	return rest
}

// fallback is the degraded renderer: escape everything, turn blank-line
// separated runs into paragraphs and single newlines into line breaks.
func fallback(text string) string {
	escaped := html.EscapeString(text)
	escaped = blankRunRe.ReplaceAllString(escaped, "</p><p>")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}
