package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is the paginated envelope the API wraps list results in.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements,omitempty"`
	Number        *int `json:"number,omitempty"`
	Size          int  `json:"size,omitempty"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// NewPage builds a consistent envelope for page number (zero-based) of a result set.
func NewPage[T any](content []T, number, size, totalElements int) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = (totalElements + size - 1) / size
	}
	n := number
	return Page[T]{
		Content:       content,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		Number:        &n,
		Size:          size,
		First:         number == 0,
		Last:          totalPages == 0 || number >= totalPages-1,
	}
}

// Validate checks the envelope invariants and every item with validateItem.
func (p Page[T]) Validate(validateItem func(T) error) error {
	if p.Content == nil {
		return invalid("page without content")
	}
	if p.TotalPages < 0 {
		return invalid("negative totalPages %d", p.TotalPages)
	}
	if p.Size > 0 && len(p.Content) > p.Size {
		return invalid("page holds %d items but size is %d", len(p.Content), p.Size)
	}
	if p.Number != nil && p.TotalPages > 0 {
		number := *p.Number
		if p.First != (number == 0) {
			return invalid("first=%v disagrees with page number %d", p.First, number)
		}
		if p.Last != (number >= p.TotalPages-1) {
			return invalid("last=%v disagrees with page %d of %d", p.Last, number, p.TotalPages)
		}
	}
	if validateItem != nil {
		for i, item := range p.Content {
			if err := validateItem(item); err != nil {
				return fmt.Errorf("content[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// SearchParams is the wire-level restaurant search query. Page is zero-based.
type SearchParams struct {
	Q         string
	MinRating int
	Page      int
	Size      int
}

// Normalize returns a sanitized copy applying defaults and bounds.
func (p SearchParams) Normalize() SearchParams {
	normalized := p
	normalized.Q = strings.TrimSpace(normalized.Q)
	if normalized.Page < 0 {
		normalized.Page = 0
	}
	if normalized.Size <= 0 {
		normalized.Size = DefaultPageSize
	}
	if normalized.Size > MaxPageSize {
		normalized.Size = MaxPageSize
	}
	return normalized
}

// Validate rejects a minimum rating outside 1–5. Zero means no filter.
func (p SearchParams) Validate() error {
	if p.MinRating != 0 && (p.MinRating < 1 || p.MinRating > 5) {
		return fmt.Errorf("minRating %d must be between 1 and 5", p.MinRating)
	}
	return nil
}

// Values returns the normalized query parameters; q and minRating are omitted when unset.
func (p SearchParams) Values() url.Values {
	normalized := p.Normalize()
	values := url.Values{}
	if normalized.Q != "" {
		values.Set("q", normalized.Q)
	}
	if normalized.MinRating != 0 {
		values.Set("minRating", strconv.Itoa(normalized.MinRating))
	}
	values.Set("page", strconv.Itoa(normalized.Page))
	values.Set("size", strconv.Itoa(normalized.Size))
	return values
}

// ReviewSort is one of the orderings the review listing accepts.
type ReviewSort string

const (
	SortDatePostedDesc ReviewSort = "datePosted,desc"
	SortDatePostedAsc  ReviewSort = "datePosted,asc"
	SortRatingDesc     ReviewSort = "rating,desc"
	SortRatingAsc      ReviewSort = "rating,asc"
)

// ParseReviewSort accepts the wire values; an empty input yields the server default.
func ParseReviewSort(raw string) (ReviewSort, error) {
	switch sort := ReviewSort(strings.TrimSpace(raw)); sort {
	case "", SortDatePostedDesc, SortDatePostedAsc, SortRatingDesc, SortRatingAsc:
		return sort, nil
	default:
		return "", fmt.Errorf("unsupported review sort %q", raw)
	}
}

// ReviewListParams carries the optional review listing parameters. Zero values are omitted
// and left to the server defaults.
type ReviewListParams struct {
	Sort ReviewSort
	Page int
	Size int
}

func (p ReviewListParams) Values() url.Values {
	values := url.Values{}
	if sort := strings.TrimSpace(string(p.Sort)); sort != "" {
		values.Set("sort", sort)
	}
	if p.Page > 0 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		values.Set("size", strconv.Itoa(p.Size))
	}
	return values
}
