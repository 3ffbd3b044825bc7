package fragments

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	NavFile     = "nav.html"
	FooterFile  = "footer.html"
	DefaultPage = "hub.html"
)

// ErrFragmentMissing is returned when a fragment file cannot be read.
var ErrFragmentMissing = errors.New("fragment missing")

// ActiveClasses are added to navigation links that point at the current page.
var ActiveClasses = []string{"bg-gray-950/50", "text-white", "font-bold"}

// Loader reads shared page fragments from a directory.
type Loader struct {
	dir string
}

// New creates a loader for the given static directory.
func New(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) read(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFragmentMissing, name, err)
	}
	return b, nil
}

// Footer returns the footer fragment as stored.
func (l *Loader) Footer() ([]byte, error) {
	return l.read(FooterFile)
}

// Nav returns the navigation fragment with the links to currentPage
// highlighted. An empty currentPage means the hub page.
func (l *Loader) Nav(currentPage string) ([]byte, error) {
	raw, err := l.read(NavFile)
	if err != nil {
		return nil, err
	}
	return Highlight(raw, currentPage)
}

// lastSegment returns the part of a URL path after its final slash, with any
// query or fragment removed. It is empty for "", "#top" or "/".
func lastSegment(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return p
}

// PageName reduces the current page's path to its file name, defaulting to
// the hub page.
func PageName(p string) string {
	if name := lastSegment(p); name != "" {
		return name
	}
	return DefaultPage
}

// Highlight marks every anchor whose href file name equals currentPage
// with the active classes and strips them from every other anchor.
func Highlight(fragment []byte, currentPage string) ([]byte, error) {
	page := PageName(currentPage)

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse navigation: %w", err)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			href, ok := attr(n, "href")
			setActive(n, ok && lastSegment(href) == page)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		walk(n)
		if err := html.Render(&buf, n); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setActive(n *html.Node, active bool) {
	idx := -1
	var classes []string
	for i, a := range n.Attr {
		if a.Key == "class" {
			idx = i
			classes = strings.Fields(a.Val)
			break
		}
	}

	kept := classes[:0]
	for _, c := range classes {
		if !isActiveClass(c) {
			kept = append(kept, c)
		}
	}
	if active {
		kept = append(kept, ActiveClasses...)
	}

	switch {
	case idx >= 0:
		n.Attr[idx].Val = strings.Join(kept, " ")
	case len(kept) > 0:
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: strings.Join(kept, " ")})
	}
}

func isActiveClass(c string) bool {
	for _, a := range ActiveClasses {
		if c == a {
			return true
		}
	}
	return false
}
