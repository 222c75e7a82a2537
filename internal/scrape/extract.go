package scrape

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// FallbackStrategy is the strategy name reported when the generic text scan
// produced the result.
const FallbackStrategy = "fallback"

// strategy is one selector pattern for locating suggestion elements.
type strategy struct {
	name     string
	selector string
}

// strategies is the ordered fallback chain; the first pattern that yields at
// least one filtered candidate wins. These mirror the markup variants the
// target site has shipped; they break silently when the site changes.
var strategies = []strategy{
	{"cursor-pointer-wildcard", `div[class*='cursor-pointer'] span`},
	{"cursor-pointer", `div.cursor-pointer span`},
	{"aria-option", `[role='option']`},
	{"search-result", `div[class*='search'] div[class*='result']`},
	{"suggestion-class", `div[class*='suggestion']`},
	{"autocomplete-span", `div[class*='autocomplete'] span`},
	{"suggestions-list", `ul[class*='suggestions'] li`},
	{"dropdown", `div[class*='dropdown'] div`},
}

// Extract runs the ordered strategies against the document and falls back
// to a generic text scan. It returns the ordered, deduplicated suggestion
// list (never nil) and the name of the strategy that produced it ("" when
// nothing matched at all).
func Extract(doc *goquery.Document, query string, fallbackLimit int) ([]string, string) {
	for _, st := range strategies {
		if got := collect(doc, st.selector); len(got) > 0 {
			return got, st.name
		}
	}

	if got := fallbackScan(doc, query, fallbackLimit); len(got) > 0 {
		return got, FallbackStrategy
	}

	return []string{}, ""
}

// collect gathers candidate texts under one selector: trimmed, longer than
// two runes, deduplicated by exact match in insertion order.
func collect(doc *goquery.Document, selector string) []string {
	var out []string
	seen := make(map[string]struct{})

	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if utf8.RuneCountInString(text) <= 2 {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})

	return out
}

// fallbackScan sweeps every div, span and list item for text that plausibly
// echoes the query: 2 < length < 200 runes, contains the query
// case-insensitively, and is not the query itself. Capped at limit.
func fallbackScan(doc *goquery.Document, query string, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	lowerQuery := strings.ToLower(query)

	doc.Find("div, span, li").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		n := utf8.RuneCountInString(text)
		if n <= 2 || n >= 200 {
			return true
		}
		if !strings.Contains(strings.ToLower(text), lowerQuery) {
			return true
		}
		if text == query {
			return true
		}
		if _, dup := seen[text]; dup {
			return true
		}

		seen[text] = struct{}{}
		out = append(out, text)
		return len(out) < limit
	})

	return out
}
