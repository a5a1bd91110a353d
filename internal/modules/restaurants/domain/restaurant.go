package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload marks a decoded entity that violates the response schema.
var ErrInvalidPayload = errors.New("invalid payload")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

type Address struct {
	StreetNumber string `json:"streetNumber" yaml:"streetNumber"`
	StreetName   string `json:"streetName" yaml:"streetName"`
	Unit         string `json:"unit,omitempty" yaml:"unit,omitempty"`
	City         string `json:"city" yaml:"city"`
	State        string `json:"state" yaml:"state"`
	PostalCode   string `json:"postalCode" yaml:"postalCode"`
	Country      string `json:"country" yaml:"country"`
}

// Line renders the address on a single line for listings.
func (a Address) Line() string {
	street := strings.TrimSpace(a.StreetNumber + " " + a.StreetName)
	if unit := strings.TrimSpace(a.Unit); unit != "" {
		street += " " + unit
	}
	parts := make([]string, 0, 4)
	for _, part := range []string{street, a.City, strings.TrimSpace(a.State + " " + a.PostalCode), a.Country} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type User struct {
	ID         string `json:"id"`
	Username   string `json:"username,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

// Photo is an uploaded image. The server identifies it by URL, falling back to ID; either
// doubles as the path segment under /photos.
type Photo struct {
	ID         string    `json:"id,omitempty"`
	URL        string    `json:"url"`
	Filename   string    `json:"filename,omitempty"`
	Caption    string    `json:"caption,omitempty"`
	UploadDate Timestamp `json:"uploadDate"`
}

// Ref returns the identifier used to retrieve the photo bytes.
func (p Photo) Ref() string {
	if url := strings.TrimSpace(p.URL); url != "" {
		return url
	}
	return strings.TrimSpace(p.ID)
}

func (p Photo) Validate() error {
	if p.Ref() == "" {
		return invalid("photo without id or url")
	}
	return nil
}

type Restaurant struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	CuisineType        string         `json:"cuisineType"`
	ContactInformation string         `json:"contactInformation"`
	AverageRating      float64        `json:"averageRating"`
	GeoLocation        *GeoPoint      `json:"geoLocation,omitempty"`
	Address            Address        `json:"address"`
	OperatingHours     OperatingHours `json:"operatingHours"`
	Photos             []Photo        `json:"photos"`
	Reviews            []Review       `json:"reviews"`
	CreatedBy          *User          `json:"createdBy,omitempty"`
}

func (r Restaurant) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return invalid("restaurant without id")
	}
	if strings.TrimSpace(r.Name) == "" {
		return invalid("restaurant %s without name", r.ID)
	}
	if r.AverageRating < 0 || r.AverageRating > 5 {
		return invalid("restaurant %s average rating %.2f out of range", r.ID, r.AverageRating)
	}
	for _, photo := range r.Photos {
		if err := photo.Validate(); err != nil {
			return err
		}
	}
	for _, review := range r.Reviews {
		if err := review.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RestaurantSummary is the condensed listing representation returned by search.
type RestaurantSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CuisineType   string  `json:"cuisineType"`
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
	Address       Address `json:"address"`
	Photos        []Photo `json:"photos"`
}

func (r RestaurantSummary) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return invalid("restaurant summary without id")
	}
	if r.TotalReviews < 0 {
		return invalid("restaurant summary %s with negative review count", r.ID)
	}
	return nil
}

type Review struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	DatePosted Timestamp `json:"datePosted"`
	LastEdited Timestamp `json:"lastEdited"`
	Photos     []Photo   `json:"photos"`
	WrittenBy  *User     `json:"writtenBy,omitempty"`
}

func (r Review) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return invalid("review without id")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return invalid("review %s rating %d out of range", r.ID, r.Rating)
	}
	return nil
}

// RestaurantRequest is the body of both create and update calls.
type RestaurantRequest struct {
	Name               string         `json:"name" yaml:"name"`
	CuisineType        string         `json:"cuisineType" yaml:"cuisineType"`
	ContactInformation string         `json:"contactInformation" yaml:"contactInformation"`
	Address            Address        `json:"address" yaml:"address"`
	OperatingHours     OperatingHours `json:"operatingHours" yaml:"operatingHours"`
	PhotoIDs           []string       `json:"photoIds" yaml:"photoIds"`
}

type (
	CreateRestaurantRequest = RestaurantRequest
	UpdateRestaurantRequest = RestaurantRequest
)

// ReviewRequest is the body of both create and update review calls.
type ReviewRequest struct {
	Content  string   `json:"content" yaml:"content"`
	Rating   int      `json:"rating" yaml:"rating"`
	PhotoIDs []string `json:"photoIds" yaml:"photoIds"`
}

type (
	CreateReviewRequest = ReviewRequest
	UpdateReviewRequest = ReviewRequest
)
