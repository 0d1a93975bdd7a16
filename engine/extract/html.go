package extract

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/normabase/normabase/engine/legal"
)

const extractorHTML = "html_dom"

// Elements removed wholesale before content selection.
var strippedElements = map[atom.Atom]bool{
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
}

// Class fragments marking non-content widgets (breadcrumb trails, social
// share bars) common on government portals.
var strippedClassFragments = []string{"breadcrumb", "share", "social"}

var charsetDecl = regexp.MustCompile(`charset[="\s]+([a-zA-Z0-9\-_]+)`)

// Landmark precedence for the main content block. First match wins; the
// whole body is the last resort.
var contentLandmarks = []func(*html.Node) bool{
	func(n *html.Node) bool { return n.DataAtom == atom.Article },
	func(n *html.Node) bool { return n.DataAtom == atom.Div && attrVal(n, "id") == "content-core" },
	func(n *html.Node) bool {
		return n.DataAtom == atom.Div && strings.Contains(attrVal(n, "class"), "content")
	},
	func(n *html.Node) bool { return n.DataAtom == atom.Div && attrVal(n, "id") == "content" },
	func(n *html.Node) bool { return n.DataAtom == atom.Main },
}

// ExtractHTML decodes, cleans, and flattens a legislation HTML page. The
// encoding hint takes priority; otherwise the declared charset is sniffed
// from the head before defaulting to UTF-8.
func ExtractHTML(data []byte, encodingHint string) (legal.ExtractionResult, error) {
	decoded, err := decodeHTML(data, encodingHint)
	if err != nil {
		return legal.ExtractionResult{}, err
	}
	root, err := html.Parse(strings.NewReader(decoded))
	if err != nil {
		return legal.ExtractionResult{}, fmt.Errorf("extract: parse html: %w", err)
	}
	stripNonContent(root)
	block := selectContentBlock(root)
	var sb strings.Builder
	flattenText(block, &sb)
	text := normalizeText(sb.String())
	return buildResult(text, legal.FormatHTML, extractorHTML), nil
}

func decodeHTML(data []byte, encodingHint string) (string, error) {
	label := encodingHint
	if label == "" {
		head := strings.ToLower(string(data[:min(len(data), 2048)]))
		if m := charsetDecl.FindStringSubmatch(head); m != nil {
			label = m[1]
		}
	}
	if label == "" || strings.EqualFold(label, "utf-8") {
		return string(data), nil
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return string(data), nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("extract: decode html as %s: %w", label, err)
	}
	return string(decoded), nil
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isStripped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if strippedElements[n.DataAtom] {
		return true
	}
	class := strings.ToLower(attrVal(n, "class"))
	for _, frag := range strippedClassFragments {
		if strings.Contains(class, frag) {
			return true
		}
	}
	return false
}

func stripNonContent(n *html.Node) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling
		if isStripped(child) {
			n.RemoveChild(child)
			continue
		}
		stripNonContent(child)
	}
}

func selectContentBlock(root *html.Node) *html.Node {
	for _, match := range contentLandmarks {
		if n := findFirst(root, match); n != nil {
			return n
		}
	}
	if body := findFirst(root, func(n *html.Node) bool { return n.DataAtom == atom.Body }); body != nil {
		return body
	}
	return root
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

// flattenText renders text content with newline separators so line-start
// anchors survive for the structural chunker.
func flattenText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		flattenText(child, sb)
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr, atom.Table,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Section:
			sb.WriteByte('\n')
		}
	}
}
