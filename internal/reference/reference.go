// Package reference pulls the discovery paper link out of the archive's
// pl_refname markup.
package reference

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// Reference is a citation extracted from an anchor element.
type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Extract returns the first anchor element in markup. No anchor, or a first
// anchor without an href, yields false; Extract never panics on malformed markup.
func Extract(markup string) (Reference, bool) {
	if strings.TrimSpace(markup) == "" {
		return Reference{}, false
	}
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		inAnchor bool
		ref      Reference
		text     strings.Builder
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; an unterminated anchor still counts.
			if inAnchor {
				ref.Title = collapse(text.String())
				return ref, true
			}
			slog.Debug("no reference anchor", "markup", truncate(markup, 80))
			return Reference{}, false
		case html.StartTagToken:
			tok := z.Token()
			if inAnchor || tok.Data != "a" {
				continue
			}
			// Only the first anchor is considered, even when it has no href.
			for _, a := range tok.Attr {
				if strings.EqualFold(a.Key, "href") {
					ref.URL = strings.TrimSpace(a.Val)
					break
				}
			}
			if ref.URL == "" {
				slog.Debug("reference anchor has no href", "markup", truncate(markup, 80))
				return Reference{}, false
			}
			inAnchor = true
		case html.TextToken:
			if inAnchor {
				text.Write(z.Text())
			}
		case html.EndTagToken:
			if !inAnchor {
				continue
			}
			if name, _ := z.TagName(); string(name) == "a" {
				ref.Title = collapse(text.String())
				return ref, true
			}
		}
	}
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
