// Package htmlparse extracts sample identifiers from search result pages.
package htmlparse

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

// DefaultMarkerAttribute is the attribute carrying the sample identifier
const DefaultMarkerAttribute = "data-sample-id"

// ResultParser finds identifiers carried by a marker attribute
type ResultParser struct {
	attr string
}

// NewResultParser creates a parser for the given marker attribute.
// An empty name selects DefaultMarkerAttribute.
func NewResultParser(attr string) *ResultParser {
	attr = strings.ToLower(strings.TrimSpace(attr))
	if attr == "" {
		attr = DefaultMarkerAttribute
	}
	return &ResultParser{attr: attr}
}

// Parse returns the identifiers in first-occurrence document order with
// duplicates removed. A page without markers yields an empty slice.
func (p *ResultParser) Parse(document string) []entities.SampleIdentifier {
	ids := make([]entities.SampleIdentifier, 0)
	seen := make(map[string]struct{})

	z := html.NewTokenizer(strings.NewReader(document))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed tail; either way the page is done
			return ids
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		// Token() lowercases attribute names and unescapes values
		for _, a := range z.Token().Attr {
			if a.Namespace != "" || a.Key != p.attr {
				continue
			}
			v := strings.TrimSpace(a.Val)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			ids = append(ids, entities.SampleIdentifier(v))
		}
	}
}
