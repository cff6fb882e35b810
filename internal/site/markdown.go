package site

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// newMarkdown renders CMS prose. Raw HTML in the source is dropped and
// dangerous link schemes are neutralised, which is goldmark's default
// without html.WithUnsafe.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)
}

func (s *Site) markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	// goldmark escapes text and drops raw HTML
	return template.HTML(buf.String())
}
