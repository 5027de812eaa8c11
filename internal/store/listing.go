package store

import (
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/PuerkitoBio/goquery"
)

// ParseIndex extracts entity file names from an HTML directory listing such
// as the one net/http.FileServer renders.
func ParseIndex(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing index HTML: %w", err)
	}

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, err := url.Parse(href)
		if err != nil || u.IsAbs() || u.RawQuery != "" {
			return
		}
		name := path.Base(u.Path)
		if isEntityFile(name) {
			seen[name] = true
		}
	})
	return sortedNames(seen), nil
}
