package domain

import (
	"errors"
	"strings"
	"testing"

	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
)

func validRestaurantRequest() restaurants.RestaurantRequest {
	return restaurants.RestaurantRequest{
		Name:               "Joe's Diner",
		CuisineType:        "American",
		ContactInformation: "555-0100",
		Address: restaurants.Address{
			StreetNumber: "12",
			StreetName:   "Main St",
			City:         "Kansas City",
			State:        "MO",
			PostalCode:   "64105",
			Country:      "US",
		},
		OperatingHours: restaurants.OperatingHours{Monday: &restaurants.TimeRange{OpenTime: "09:00", CloseTime: "17:00"}},
		PhotoIDs:       []string{"a.png"},
	}
}

func TestValidateRestaurantRequest(t *testing.T) {
	if err := ValidateRestaurantRequest(validRestaurantRequest()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	req := validRestaurantRequest()
	req.Name = "  "
	req.Address.City = ""
	req.OperatingHours.Friday = &restaurants.TimeRange{OpenTime: "9am", CloseTime: "17:00"}
	req.PhotoIDs = []string{" "}

	err := ValidateRestaurantRequest(req)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var fields FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %T", err)
	}
	got := make([]string, 0, len(fields))
	for _, fe := range fields {
		got = append(got, fe.Field)
	}
	want := "name,address.city,operatingHours.friday,photoIds"
	if strings.Join(got, ",") != want {
		t.Fatalf("fields = %v, want %s", got, want)
	}
	if !strings.HasPrefix(err.Error(), "name: Restaurant name is required, address.city: must not be blank") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestValidateReviewRequest(t *testing.T) {
	cases := []struct {
		name string
		req  restaurants.ReviewRequest
		ok   bool
	}{
		{"valid", restaurants.ReviewRequest{Content: "Great", Rating: 5}, true},
		{"lowest", restaurants.ReviewRequest{Content: "Meh", Rating: 1}, true},
		{"zero rating", restaurants.ReviewRequest{Content: "Meh", Rating: 0}, false},
		{"too high", restaurants.ReviewRequest{Content: "Wow", Rating: 6}, false},
		{"blank content", restaurants.ReviewRequest{Content: " ", Rating: 3}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateReviewRequest(tc.req)
			if (err == nil) != tc.ok {
				t.Fatalf("ValidateReviewRequest(%+v) = %v", tc.req, err)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestPhotoRefs(t *testing.T) {
	got := PhotoRefs([]string{" a.png ", "", "b.jpg", "  "})
	if strings.Join(got, ",") != "a.png,b.jpg" {
		t.Fatalf("PhotoRefs = %v", got)
	}
}
