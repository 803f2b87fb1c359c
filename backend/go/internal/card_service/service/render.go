package service

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// summaryMarkdown renders model output with GitHub flavoured markdown. Raw HTML
// in the model output is not passed through.
var summaryMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderSummary converts a markdown summary into display-ready HTML.
func RenderSummary(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := summaryMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
