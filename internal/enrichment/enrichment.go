// Package enrichment orchestrates the two-stage address pipeline: a
// postal-code lookup that fails hard, and a geocoding stage that
// degrades to a fixed default instead of failing — enrichment is a
// convenience, and a contact must stay savable without network access.
package enrichment

import (
	"context"
	"fmt"

	"github.com/patric-chuzhbe/agenda/internal/logger"
	"github.com/patric-chuzhbe/agenda/internal/models"
	"github.com/patric-chuzhbe/agenda/internal/viacep"
)

// The fallback coordinate pair is the Brazilian territorial centroid.
const (
	DefaultLatitude  = -14.235004
	DefaultLongitude = -51.92528
)

type postalDirectory interface {
	GetAddressByCEP(ctx context.Context, cep string) (*viacep.AddressData, error)
}

type geocoder interface {
	Resolve(ctx context.Context, address string) (models.Coordinates, error)
}

// Resolution is the two-outcome result of the geocoding stage:
// either the provider's coordinates, or the default pair with the
// reason the provider could not serve.
type Resolution struct {
	Location  models.Coordinates
	Defaulted bool
	Reason    string
}

// Pipeline wires the postal directory and the geocoder. It holds no
// state and is independent of persistence.
type Pipeline struct {
	directory postalDirectory
	geocoder  geocoder
}

func New(directory postalDirectory, geocoder geocoder) *Pipeline {
	return &Pipeline{
		directory: directory,
		geocoder:  geocoder,
	}
}

// EnrichAddress turns an 8-digit postal code into a structured
// address. Unlike the geocoding stage this one fails hard: the
// viacep sentinel errors reach the caller verbatim.
func (p *Pipeline) EnrichAddress(ctx context.Context, cep string) (*viacep.AddressData, error) {
	return p.directory.GetAddressByCEP(ctx, cep)
}

// ResolveCoordinates geocodes a free-text address. It never fails:
// when the provider returns nothing usable, the default coordinates
// are substituted, the outcome is marked Defaulted and a warning is
// logged.
func (p *Pipeline) ResolveCoordinates(ctx context.Context, address string) Resolution {
	location, err := p.geocoder.Resolve(ctx, address)
	if err != nil {
		logger.Log.Warnw(
			"geocoding degraded to default coordinates",
			"address", address,
			"error", err,
		)

		return Resolution{
			Location: models.Coordinates{
				Latitude:  DefaultLatitude,
				Longitude: DefaultLongitude,
			},
			Defaulted: true,
			Reason:    err.Error(),
		}
	}

	return Resolution{Location: location}
}

// Coordinates is the convenience form of ResolveCoordinates for
// callers that do not care whether the result was defaulted.
func (p *Pipeline) Coordinates(ctx context.Context, address string) models.Coordinates {
	return p.ResolveCoordinates(ctx, address).Location
}

// ComposeAddress builds the free-text form fed to the geocoder.
func ComposeAddress(street, number, city, state string) string {
	return fmt.Sprintf("%s, %s - %s, %s", street, number, city, state)
}
