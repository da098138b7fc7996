package model

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LinkEntry is one drug name and the absolute URL of its detail page.
// Entries are created once by the extractor and never modified.
type LinkEntry struct {
	// Name is the visible anchor text, whitespace-normalized.
	Name string `json:"name"`

	// URL is the href resolved against the site's base URL.
	URL string `json:"url"`
}

// LinkKey is the identity of a LinkEntry for deduplication purposes.
type LinkKey struct {
	Name string
	URL  string
}

// Key returns the deduplication key: the lowercased name combined with the
// exact URL. Two entries differing only in the case of their name are
// considered the same entry.
func (e LinkEntry) Key() LinkKey {
	return LinkKey{
		Name: cases.Lower(language.Und).String(e.Name),
		URL:  e.URL,
	}
}

// DedupEntries returns entries with later duplicates removed.
// First-seen order is preserved. The input slice is not modified, and the
// result is never nil.
func DedupEntries(entries []LinkEntry) []LinkEntry {
	seen := make(map[LinkKey]struct{}, len(entries))
	unique := make([]LinkEntry, 0, len(entries))
	for _, e := range entries {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, e)
	}
	return unique
}

// Tier identifies which extraction strategy produced a CrawlResult.
type Tier int

const (
	// TierEmpty means neither strategy found any entries.
	TierEmpty Tier = iota

	// TierStructural means entries came from the two-column listing markup.
	TierStructural

	// TierFallback means the structural pass found nothing and entries came
	// from anchors whose href looks like a drug detail page.
	TierFallback
)

// String returns the tier name used in logs, reports and the database.
func (t Tier) String() string {
	switch t {
	case TierStructural:
		return "structural"
	case TierFallback:
		return "fallback"
	default:
		return "empty"
	}
}

// ParseTier is the inverse of Tier.String. Unknown names map to TierEmpty.
func ParseTier(s string) Tier {
	switch s {
	case "structural":
		return TierStructural
	case "fallback":
		return TierFallback
	default:
		return TierEmpty
	}
}

// CrawlResult is the ordered, deduplicated set of entries extracted from one
// index page.
type CrawlResult struct {
	// Tier records which extraction strategy produced Entries.
	Tier Tier `json:"tier"`

	// Entries holds the extracted links in document order.
	Entries []LinkEntry `json:"entries"`
}

// Len returns the number of entries, treating a nil result as empty.
func (r *CrawlResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Entries)
}
