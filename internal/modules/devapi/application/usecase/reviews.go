package usecase

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"mesaYaReviews/internal/modules/devapi/domain"
	realtime "mesaYaReviews/internal/modules/realtime/domain"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
)

// CreateReview adds author's review. Each user may review a restaurant once.
func (c *Catalog) CreateReview(ctx context.Context, author restaurants.User, restaurantID string, req restaurants.ReviewRequest) (restaurants.Review, error) {
	if strings.TrimSpace(author.ID) == "" {
		return restaurants.Review{}, domain.ErrUnauthenticated
	}
	if err := domain.ValidateReviewRequest(req); err != nil {
		return restaurants.Review{}, err
	}
	now := restaurants.Timestamp{Time: c.now().UTC()}
	review := restaurants.Review{
		ID:         c.newID(),
		Content:    strings.TrimSpace(req.Content),
		Rating:     req.Rating,
		DatePosted: now,
		LastEdited: now,
		Photos:     c.photosFor(req.PhotoIDs),
		WrittenBy:  &author,
	}
	updated, err := c.store.Update(ctx, strings.TrimSpace(restaurantID), func(r *restaurants.Restaurant) error {
		for _, existing := range r.Reviews {
			if existing.WrittenBy != nil && existing.WrittenBy.ID == author.ID {
				return domain.ErrReviewNotAllowed
			}
		}
		r.Reviews = append(r.Reviews, review)
		r.AverageRating = averageRating(r.Reviews)
		return nil
	})
	if err != nil {
		return restaurants.Review{}, err
	}
	c.logger.Info("review created", slog.String("restaurantId", updated.ID), slog.String("reviewId", review.ID), slog.Int("rating", review.Rating))
	c.publishReview(ctx, realtime.ActionCreated, updated, review.ID, review)
	return review, nil
}

// UpdateReview lets the author edit their review within ReviewEditWindow of posting.
func (c *Catalog) UpdateReview(ctx context.Context, author restaurants.User, restaurantID, reviewID string, req restaurants.ReviewRequest) (restaurants.Review, error) {
	if strings.TrimSpace(author.ID) == "" {
		return restaurants.Review{}, domain.ErrUnauthenticated
	}
	if err := domain.ValidateReviewRequest(req); err != nil {
		return restaurants.Review{}, err
	}
	reviewID = strings.TrimSpace(reviewID)
	now := c.now().UTC()
	var edited restaurants.Review
	updated, err := c.store.Update(ctx, strings.TrimSpace(restaurantID), func(r *restaurants.Restaurant) error {
		idx := slices.IndexFunc(r.Reviews, func(rev restaurants.Review) bool { return rev.ID == reviewID })
		if idx < 0 {
			return domain.ErrReviewNotFound
		}
		review := r.Reviews[idx]
		if review.WrittenBy == nil || review.WrittenBy.ID != author.ID {
			return domain.ErrReviewNotAllowed
		}
		if now.Sub(review.DatePosted.Time) > ReviewEditWindow {
			return domain.ErrReviewNotAllowed
		}
		review.Content = strings.TrimSpace(req.Content)
		review.Rating = req.Rating
		review.Photos = c.photosFor(req.PhotoIDs)
		review.LastEdited = restaurants.Timestamp{Time: now}
		r.Reviews[idx] = review
		r.AverageRating = averageRating(r.Reviews)
		edited = review
		return nil
	})
	if err != nil {
		return restaurants.Review{}, err
	}
	c.publishReview(ctx, realtime.ActionUpdated, updated, edited.ID, edited)
	return edited, nil
}

// DeleteReview is idempotent for unknown reviews; the restaurant must exist.
func (c *Catalog) DeleteReview(ctx context.Context, restaurantID, reviewID string) error {
	reviewID = strings.TrimSpace(reviewID)
	removed := false
	updated, err := c.store.Update(ctx, strings.TrimSpace(restaurantID), func(r *restaurants.Restaurant) error {
		kept := slices.DeleteFunc(r.Reviews, func(rev restaurants.Review) bool { return rev.ID == reviewID })
		removed = len(kept) != len(r.Reviews)
		r.Reviews = kept
		r.AverageRating = averageRating(r.Reviews)
		return nil
	})
	if err != nil {
		return err
	}
	if removed {
		c.publishReview(ctx, realtime.ActionDeleted, updated, reviewID, nil)
	}
	return nil
}

func (c *Catalog) GetReview(ctx context.Context, restaurantID, reviewID string) (restaurants.Review, error) {
	restaurant, err := c.store.Get(ctx, strings.TrimSpace(restaurantID))
	if err != nil {
		return restaurants.Review{}, err
	}
	reviewID = strings.TrimSpace(reviewID)
	for _, review := range restaurant.Reviews {
		if review.ID == reviewID {
			return review, nil
		}
	}
	return restaurants.Review{}, domain.ErrReviewNotFound
}

// ListReviews pages a restaurant's reviews, newest first unless query.Sort says otherwise.
func (c *Catalog) ListReviews(ctx context.Context, restaurantID string, query ReviewQuery) (restaurants.Page[restaurants.Review], error) {
	sort, err := restaurants.ParseReviewSort(string(query.Sort))
	if err != nil {
		return restaurants.Page[restaurants.Review]{}, domain.FieldErrors{{Field: "sort", Message: err.Error()}}
	}
	if sort == "" {
		sort = restaurants.SortDatePostedDesc
	}
	restaurant, err := c.store.Get(ctx, strings.TrimSpace(restaurantID))
	if err != nil {
		return restaurants.Page[restaurants.Review]{}, err
	}
	params := restaurants.SearchParams{Page: query.Page, Size: query.Size}.Normalize()

	reviews := slices.Clone(restaurant.Reviews)
	slices.SortStableFunc(reviews, reviewOrder(sort))
	return restaurants.NewPage(pageOf(reviews, params.Page, params.Size), params.Page, params.Size, len(reviews)), nil
}

func reviewOrder(sort restaurants.ReviewSort) func(a, b restaurants.Review) int {
	byDate := func(a, b restaurants.Review) int { return a.DatePosted.Compare(b.DatePosted.Time) }
	byRating := func(a, b restaurants.Review) int { return cmp.Or(cmp.Compare(a.Rating, b.Rating), byDate(a, b)) }
	switch sort {
	case restaurants.SortDatePostedAsc:
		return byDate
	case restaurants.SortRatingAsc:
		return byRating
	case restaurants.SortRatingDesc:
		return func(a, b restaurants.Review) int { return byRating(b, a) }
	default:
		return func(a, b restaurants.Review) int { return byDate(b, a) }
	}
}

func averageRating(reviews []restaurants.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, review := range reviews {
		total += review.Rating
	}
	return float64(total) / float64(len(reviews))
}

func (c *Catalog) publishReview(ctx context.Context, action string, restaurant restaurants.Restaurant, reviewID string, review any) {
	msg := realtime.NewEntityMessage(realtime.ReviewEntity, action, reviewID, review, c.now()).
		WithMetadata(realtime.MetadataRestaurantID, restaurant.ID)
	data := map[string]any{"averageRating": restaurant.AverageRating, "totalReviews": len(restaurant.Reviews)}
	if review != nil {
		data["review"] = review
	}
	msg.Data = data
	c.events.publish(ctx, msg)
}
