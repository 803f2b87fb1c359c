package resolver

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// strippedTags are removed together with their subtrees before text extraction.
var strippedTags = map[atom.Atom]bool{
	atom.Iframe: true, atom.Img: true, atom.Pre: true, atom.Script: true,
	atom.Style: true, atom.Hr: true, atom.Option: true, atom.Select: true,
	atom.Svg: true, atom.Video: true, atom.Input: true, atom.Nav: true,
	atom.Button: true, atom.Header: true, atom.Footer: true, atom.Noscript: true,
	atom.Template: true,
}

// CleanHTML extracts the readable text of the <body>: stripped elements are
// dropped, every text node is put on its own line, lines are trimmed and empty
// lines removed.
func CleanHTML(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", err
	}
	body := findBody(doc)
	if body == nil {
		return "", nil
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			// html.Parse keeps <svg> children as foreign elements with DataAtom 0.
			if strippedTags[n.DataAtom] || n.Data == "svg" {
				return
			}
		case html.TextNode:
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return strings.Join(lines, "\n"), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
