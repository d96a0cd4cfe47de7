package services

import (
	"fmt"
	"strings"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

// SummaryInput is everything the human summary is rendered from
type SummaryInput struct {
	Family   string
	Summary  entities.RunSummary
	Warnings []string
	Canceled bool
	Pending  int
}

// FormatSummary renders the end-of-run report: one count per outcome kind,
// then one line per failed item with its terminal reason.
func FormatSummary(in SummaryInput) string {
	var b strings.Builder
	s := in.Summary

	fmt.Fprintf(&b, "Summary for family %q: %d processed\n", in.Family, s.Total())
	fmt.Fprintf(&b, "   Success:              %d\n", s.Success)
	fmt.Fprintf(&b, "   Skipped (too small):  %d\n", s.SkippedInvalidSize)
	fmt.Fprintf(&b, "   Skipped (not found):  %d\n", s.SkippedNotFound)
	fmt.Fprintf(&b, "   Failed:               %d\n", s.Failed)
	if s.RateLimited > 0 {
		fmt.Fprintf(&b, "   Rate limited:         %d\n", s.RateLimited)
	}

	if len(s.Failures) > 0 {
		b.WriteString("Failures:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "   %s: %s (%s)\n", f.Identifier, f.Reason, pluralize(f.Attempts, "attempt"))
		}
	}

	for _, w := range in.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}

	if in.Canceled {
		fmt.Fprintf(&b, "Canceled: %s not started\n", pluralize(in.Pending, "identifier"))
	}

	return b.String()
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
