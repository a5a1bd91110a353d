package domain

import (
	"strings"

	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
)

const (
	MinRating = 1
	MaxRating = 5
)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// ValidateRestaurantRequest applies the create/update rules of the review API.
func ValidateRestaurantRequest(req restaurants.RestaurantRequest) error {
	var errs FieldErrors
	if blank(req.Name) {
		errs.add("name", "Restaurant name is required")
	}
	if blank(req.CuisineType) {
		errs.add("cuisineType", "Cuisine type is required")
	}
	if blank(req.ContactInformation) {
		errs.add("contactInformation", "Contact information is required")
	}
	address := req.Address
	for _, field := range []struct{ name, value string }{
		{"address.streetNumber", address.StreetNumber},
		{"address.streetName", address.StreetName},
		{"address.city", address.City},
		{"address.state", address.State},
		{"address.postalCode", address.PostalCode},
		{"address.country", address.Country},
	} {
		if blank(field.value) {
			errs.add(field.name, "must not be blank")
		}
	}
	for _, day := range restaurants.Week {
		if r := req.OperatingHours.Day(day); r != nil {
			if err := r.Validate(); err != nil {
				errs.add("operatingHours."+day.Key(), err.Error())
			}
		}
	}
	if len(PhotoRefs(req.PhotoIDs)) == 0 {
		errs.add("photoIds", "At least one photo ID is required")
	}
	return errs.orNil()
}

// ValidateReviewRequest applies the create/update review rules.
func ValidateReviewRequest(req restaurants.ReviewRequest) error {
	var errs FieldErrors
	if blank(req.Content) {
		errs.add("content", "Review content is required")
	}
	if req.Rating < MinRating || req.Rating > MaxRating {
		errs.add("rating", "Rating must be between 1 and 5")
	}
	return errs.orNil()
}

// PhotoRefs trims the ids and drops blanks.
func PhotoRefs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
