package infrastructure

import (
	"context"
	"math/rand/v2"

	"mesaYaReviews/internal/modules/devapi/application/port"
	restaurants "mesaYaReviews/internal/modules/restaurants/domain"
)

// Bounding box the development locator scatters restaurants in.
const (
	minLatitude  = 39.00
	maxLatitude  = 39.75
	minLongitude = -94.75
	maxLongitude = -94.45
)

// RandomGeoLocator places every address at a random point around Kansas City. It stands in
// for a geocoding service during development.
type RandomGeoLocator struct {
	float func() float64
}

func NewRandomGeoLocator() *RandomGeoLocator {
	return &RandomGeoLocator{float: rand.Float64}
}

func (l *RandomGeoLocator) Locate(_ context.Context, _ restaurants.Address) (restaurants.GeoPoint, error) {
	return restaurants.GeoPoint{
		Latitude:  minLatitude + l.float()*(maxLatitude-minLatitude),
		Longitude: minLongitude + l.float()*(maxLongitude-minLongitude),
	}, nil
}

var _ port.GeoLocator = (*RandomGeoLocator)(nil)
