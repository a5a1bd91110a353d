package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"mesaYaReviews/internal/modules/restaurants/application/port"
	"mesaYaReviews/internal/modules/restaurants/domain"
	"mesaYaReviews/internal/shared/logging"
)

// DefaultSearchPageSize is the number of restaurants shown per results page.
const DefaultSearchPageSize = 8

type RestaurantSearcher interface {
	SearchRestaurants(ctx context.Context, params domain.SearchParams) (domain.Page[domain.RestaurantSummary], error)
}

// SearchQuery is what the user asked for. Page is one-based; values below 1 mean the first page.
type SearchQuery struct {
	Q         string
	MinRating int
	Page      int
}

// SearchResult is an applied search: the envelope, the one-based page it represents and
// the page bar to render for it.
type SearchResult struct {
	Page        domain.Page[domain.RestaurantSummary]
	CurrentPage int
	Window      []domain.PageItem
	Seq         uint64
}

func (r SearchResult) HasPrevious() bool { return !r.Page.First }

func (r SearchResult) HasNext() bool { return !r.Page.Last }

// SearchCoordinator translates UI searches into wire searches and discards completions
// that were overtaken by a newer search. It is safe for concurrent use.
type SearchCoordinator struct {
	api      RestaurantSearcher
	pageSize int
	logger   *slog.Logger

	issued  atomic.Uint64
	applied atomic.Uint64
}

func NewSearchCoordinator(api RestaurantSearcher, pageSize int, logger *slog.Logger) *SearchCoordinator {
	if pageSize <= 0 {
		pageSize = DefaultSearchPageSize
	}
	return &SearchCoordinator{api: api, pageSize: pageSize, logger: logging.OrDefault(logger)}
}

// Params converts a one-based UI query into the zero-based wire parameters.
func (c *SearchCoordinator) Params(query SearchQuery) domain.SearchParams {
	page := query.Page
	if page < 1 {
		page = 1
	}
	return domain.SearchParams{
		Q:         strings.TrimSpace(query.Q),
		MinRating: query.MinRating,
		Page:      page - 1,
		Size:      c.pageSize,
	}
}

// Search runs query and returns its result, or port.ErrStaleResult when a search issued
// later has already been applied.
func (c *SearchCoordinator) Search(ctx context.Context, query SearchQuery) (SearchResult, error) {
	seq := c.issued.Add(1)
	params := c.Params(query)

	page, err := c.api.SearchRestaurants(ctx, params)
	if err != nil {
		c.logger.Warn("restaurant search failed",
			slog.String("q", params.Q),
			slog.Int("page", params.Page),
			slog.Any("error", err),
		)
		return SearchResult{}, err
	}

	if !c.apply(seq) {
		c.logger.Debug("discarding stale search result", slog.Uint64("seq", seq), slog.Uint64("applied", c.applied.Load()))
		return SearchResult{}, fmt.Errorf("search %d: %w", seq, port.ErrStaleResult)
	}

	current := params.Page + 1
	if page.Number != nil {
		current = *page.Number + 1
	}
	return SearchResult{
		Page:        page,
		CurrentPage: current,
		Window:      domain.PageWindow(page.TotalPages, current),
		Seq:         seq,
	}, nil
}

// apply records seq as the latest applied search unless a newer one got there first.
func (c *SearchCoordinator) apply(seq uint64) bool {
	for {
		last := c.applied.Load()
		if seq < last {
			return false
		}
		if c.applied.CompareAndSwap(last, seq) {
			return true
		}
	}
}
