package crawler

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/drugindex/internal/model"
	"golang.org/x/net/html"
)

const (
	// listSelector matches the multi-column lists that hold index entries.
	listSelector = "ul.ddc-list-column-2"

	// DefaultEntryPattern matches entry page paths for the fallback pass.
	DefaultEntryPattern = `^/(mtm/|pro/|cons/)?[a-z0-9_-]+\.html$`
)

// Extractor pulls (name, URL) pairs out of an index page.
//
// Design decision: We parse with golang.org/x/net/html and query with goquery
// rather than matching raw markup because:
//  1. The tokenizer recovers from the malformed HTML index pages often contain
//  2. CSS selectors express the list structure directly
//  3. The fallback pattern only has to judge href values, not markup
type Extractor struct {
	base         *url.URL
	entryPattern *regexp.Regexp
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithEntryPattern replaces the fallback href pattern.
func WithEntryPattern(re *regexp.Regexp) ExtractorOption {
	return func(e *Extractor) {
		if re != nil {
			e.entryPattern = re
		}
	}
}

var defaultEntryPattern = regexp.MustCompile(DefaultEntryPattern)

// NewExtractor creates an Extractor that resolves hrefs against baseURL.
func NewExtractor(baseURL string, opts ...ExtractorOption) (*Extractor, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		base:         base,
		entryPattern: defaultEntryPattern,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract parses one index page and returns its deduplicated entries.
//
// The structural pass reads the first anchor of every item in the index
// lists. Only when it yields nothing does the fallback pass scan every anchor
// on the page for entry-shaped hrefs. Only a read error is returned; an
// unparseable or empty page yields TierEmpty with no entries.
func (e *Extractor) Extract(r io.Reader) (*model.CrawlResult, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index page: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	if entries := e.structural(doc); len(entries) > 0 {
		return &model.CrawlResult{Tier: model.TierStructural, Entries: model.DedupEntries(entries)}, nil
	}
	if entries := e.fallback(doc); len(entries) > 0 {
		return &model.CrawlResult{Tier: model.TierFallback, Entries: model.DedupEntries(entries)}, nil
	}
	return &model.CrawlResult{Tier: model.TierEmpty, Entries: []model.LinkEntry{}}, nil
}

// ExtractLinks is Extract over an in-memory document.
func (e *Extractor) ExtractLinks(document string) []model.LinkEntry {
	result, err := e.Extract(strings.NewReader(document))
	if err != nil {
		return []model.LinkEntry{}
	}
	return result.Entries
}

func (e *Extractor) structural(doc *goquery.Document) []model.LinkEntry {
	entries := make([]model.LinkEntry, 0)
	doc.Find(listSelector).Each(func(_ int, list *goquery.Selection) {
		list.Find("li").Each(func(_ int, item *goquery.Selection) {
			a := item.Find("a").First()
			if a.Length() == 0 {
				return
			}
			if entry, ok := e.entry(a); ok {
				entries = append(entries, entry)
			}
		})
	})
	return entries
}

func (e *Extractor) fallback(doc *goquery.Document) []model.LinkEntry {
	entries := make([]model.LinkEntry, 0)
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !e.entryPattern.MatchString(href) {
			return
		}
		if entry, ok := e.entry(a); ok {
			entries = append(entries, entry)
		}
	})
	return entries
}

// entry builds a LinkEntry from an anchor with a non-empty href and text.
func (e *Extractor) entry(a *goquery.Selection) (model.LinkEntry, bool) {
	href, _ := a.Attr("href")
	href = strings.TrimSpace(href)
	name := collapseSpace(a.Text())
	if href == "" || name == "" {
		return model.LinkEntry{}, false
	}
	abs, ok := e.resolve(href)
	if !ok {
		return model.LinkEntry{}, false
	}
	return model.LinkEntry{Name: name, URL: abs}, true
}

func (e *Extractor) resolve(href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return e.base.ResolveReference(ref).String(), true
}

// collapseSpace trims s and folds internal whitespace runs into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
