// Package pagerange parses page selections such as "1-3,5,7-" into page lists.
package pagerange

import (
	"fmt"
	"strconv"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
)

// PageRange is an inclusive range of pages. End 0 means the last page.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r PageRange) String() string {
	switch {
	case r.End == 0:
		return fmt.Sprintf("%d-", r.Start)
	case r.Start == r.End:
		return strconv.Itoa(r.Start)
	default:
		return fmt.Sprintf("%d-%d", r.Start, r.End)
	}
}

// Parse reads a comma separated list of pages and ranges. An empty spec or
// "all" selects every page and yields nil.
func Parse(spec string) ([]PageRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return nil, nil
	}

	var ranges []PageRange
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, invalid(spec, "no pages selected")
	}
	return ranges, nil
}

func parsePart(part string) (PageRange, error) {
	start, end, isRange := strings.Cut(part, "-")
	first, err := pageNumber(strings.TrimSpace(start), part)
	if err != nil {
		return PageRange{}, err
	}
	if !isRange {
		return PageRange{Start: first, End: first}, nil
	}

	end = strings.TrimSpace(end)
	if end == "" {
		return PageRange{Start: first}, nil
	}
	last, err := pageNumber(end, part)
	if err != nil {
		return PageRange{}, err
	}
	if last < first {
		return PageRange{}, invalid(part, "range ends before it starts")
	}
	return PageRange{Start: first, End: last}, nil
}

func pageNumber(s, part string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(part, "not a page number")
	}
	if n < 1 {
		return 0, invalid(part, "pages are numbered from 1")
	}
	return n, nil
}

// Pages expands ranges against a document of total pages, keeping the order
// of the selection and dropping repeats. nil ranges select every page.
func Pages(ranges []PageRange, total int) ([]int, error) {
	if ranges == nil {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	var pages []int
	seen := make(map[int]bool)
	for _, r := range ranges {
		end := r.End
		if end == 0 {
			end = total
		}
		if r.Start > total || end > total {
			return nil, pdferrors.NewPDFErrorf(pdferrors.ErrorTypeInvalidInput,
				"page range %s out of range (document has %d pages)", r, total)
		}
		for n := r.Start; n <= end; n++ {
			if !seen[n] {
				seen[n] = true
				pages = append(pages, n)
			}
		}
	}
	return pages, nil
}

// ParsePages parses spec and expands it against total pages
func ParsePages(spec string, total int) ([]int, error) {
	ranges, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return Pages(ranges, total)
}

func invalid(part, reason string) error {
	return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInvalidInput,
		fmt.Sprintf("invalid page selection %q", part), reason)
}
