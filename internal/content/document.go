package content

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrParseDegraded is recorded on a Document whose body was empty or could
// not be parsed. It is never returned to callers of the classifier.
var ErrParseDegraded = errors.New("content could not be parsed")

// Meta is one <meta> tag. All values are lowercase.
type Meta struct {
	Name     string
	Property string
	Content  string
}

// Document is the parsed view of one page.
// String fields and list entries are lowercase so that pattern matching
// is case-insensitive without further work.
type Document struct {
	// BaseURL is the URL the body was fetched from.
	BaseURL string

	// Scripts holds the raw src attribute of every <script src>.
	Scripts []string

	// Meta holds every <meta> tag.
	Meta []Meta

	// Links holds the raw href of every <a href>. They are not resolved
	// so that path patterns like "/products" match relative links.
	Links []string

	// Title is the text of the first <title>.
	Title string

	// Description is the content of <meta name="description">.
	Description string

	// Text is the visible text: title, description and the text of
	// headings, paragraphs and other text-bearing elements, NFKC
	// normalized, lowercased and whitespace collapsed.
	Text string

	// Degraded is true when the body was empty or unparseable.
	Degraded bool

	// Err is ErrParseDegraded when Degraded is true.
	Err error
}

// textElements are the elements whose text counts as visible content.
var textElements = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "span": true, "div": true, "li": true, "a": true, "footer": true,
	"td": true, "th": true, "label": true, "button": true, "strong": true, "em": true,
}

// hiddenElements never contribute text, even inside a text element.
var hiddenElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// Parse builds a Document from body. It never fails; see Document.Degraded.
func Parse(body []byte, baseURL string) *Document {
	doc := &Document{BaseURL: baseURL}
	if len(bytes.TrimSpace(body)) == 0 {
		return degrade(doc)
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return degrade(doc)
	}
	sel := goquery.NewDocumentFromNode(root)

	sel.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src := strings.TrimSpace(s.AttrOr("src", "")); src != "" {
			doc.Scripts = append(doc.Scripts, normalize(src))
		}
	})

	sel.Find("meta").Each(func(_ int, s *goquery.Selection) {
		m := Meta{
			Name:     normalize(s.AttrOr("name", "")),
			Property: normalize(s.AttrOr("property", "")),
			Content:  normalize(s.AttrOr("content", "")),
		}
		if m.Name == "" && m.Property == "" && m.Content == "" {
			return
		}
		doc.Meta = append(doc.Meta, m)
		if m.Name == "description" && doc.Description == "" {
			doc.Description = m.Content
		}
	})

	sel.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href := strings.TrimSpace(s.AttrOr("href", "")); href != "" {
			doc.Links = append(doc.Links, normalize(href))
		}
	})

	doc.Title = normalize(sel.Find("title").First().Text())

	var text strings.Builder
	text.WriteString(doc.Title)
	text.WriteByte(' ')
	text.WriteString(doc.Description)
	collectText(root, false, &text)
	doc.Text = normalize(text.String())

	if doc.Text == "" && len(doc.Scripts) == 0 && len(doc.Meta) == 0 && len(doc.Links) == 0 {
		return degrade(doc)
	}
	return doc
}

// Empty reports whether the document carries no content at all.
func (d *Document) Empty() bool {
	return d == nil || d.Degraded
}

func degrade(doc *Document) *Document {
	doc.Scripts = nil
	doc.Meta = nil
	doc.Links = nil
	doc.Title = ""
	doc.Description = ""
	doc.Text = ""
	doc.Degraded = true
	doc.Err = ErrParseDegraded
	return doc
}

// collectText appends the text of every text node that sits inside a
// text-bearing element and outside any hidden element. Each node is
// written once regardless of how deeply text elements nest.
func collectText(n *html.Node, visible bool, b *strings.Builder) {
	switch n.Type {
	case html.ElementNode:
		if hiddenElements[n.Data] {
			return
		}
		if textElements[n.Data] {
			visible = true
		}
	case html.TextNode:
		if visible {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, visible, b)
	}
}

// normalize applies NFKC, lowercases and collapses whitespace.
// A Caser keeps state, so each call gets its own.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}
