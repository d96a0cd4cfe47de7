package entities

import "strings"

// DefaultSearchLimit is the result ceiling sent with every search query
const DefaultSearchLimit = 500

// SearchQuery is a single family term plus the remote result ceiling
type SearchQuery struct {
	Family string `json:"family"`
	Limit  int    `json:"limit"`
}

// NewSearchQuery trims the family term and rejects empty input.
// A non-positive limit falls back to DefaultSearchLimit.
func NewSearchQuery(family string, limit int) (SearchQuery, error) {
	family = strings.TrimSpace(family)
	if family == "" {
		return SearchQuery{}, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return SearchQuery{Family: family, Limit: limit}, nil
}

// DirName returns the family term as a single safe path segment
func (q SearchQuery) DirName() string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(q.Family)
	name = strings.ReplaceAll(name, "..", "_")
	if name == "." || name == "" {
		return "_"
	}
	return name
}
