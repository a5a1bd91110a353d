package infrastructure

import (
	"fmt"
	"net/url"
	"strings"

	"mesaYaReviews/internal/modules/restaurants/application/port"
)

const (
	restaurantsPath = "/restaurants"
	photosPath      = "/photos"
)

func segment(kind, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: %s", port.ErrMissingID, kind)
	}
	return url.PathEscape(trimmed), nil
}

func restaurantPath(id string) (string, error) {
	seg, err := segment("restaurant id", id)
	if err != nil {
		return "", err
	}
	return restaurantsPath + "/" + seg, nil
}

// reviewsPath is the review collection. Creation posts to the trailing-slash form.
func reviewsPath(restaurantID string, trailingSlash bool) (string, error) {
	base, err := restaurantPath(restaurantID)
	if err != nil {
		return "", err
	}
	if trailingSlash {
		return base + "/reviews/", nil
	}
	return base + "/reviews", nil
}

func reviewPath(restaurantID, reviewID string) (string, error) {
	base, err := reviewsPath(restaurantID, false)
	if err != nil {
		return "", err
	}
	seg, err := segment("review id", reviewID)
	if err != nil {
		return "", err
	}
	return base + "/" + seg, nil
}

func photoPath(ref string) (string, error) {
	seg, err := segment("photo reference", ref)
	if err != nil {
		return "", err
	}
	return photosPath + "/" + seg, nil
}
