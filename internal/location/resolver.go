// Package location resolves a physical location for the dialogue, either
// through device geolocation plus reverse geocoding or through free-text
// extraction against the gazetteer.
package location

import (
	"context"
	"log/slog"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/core/ports"
	"github.com/jantavoice/intake/internal/gazetteer"
	"github.com/jantavoice/intake/internal/geocode"
)

// Resolver is a pure request/response collaborator: it holds no mutable
// state of its own and never touches session state directly.
type Resolver struct {
	locator  ports.Locator
	geocoder ports.Geocoder
	gaz      *gazetteer.Gazetteer
	logger   *slog.Logger
}

// New builds a resolver. The gazetteer may be Empty() when the directory
// service was unreachable; extraction then degrades to the sentinel.
func New(locator ports.Locator, geocoder ports.Geocoder, gaz *gazetteer.Gazetteer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if gaz == nil {
		gaz = gazetteer.Empty()
	}
	return &Resolver{locator: locator, geocoder: geocoder, gaz: gaz, logger: logger}
}

// Auto acquires a one-shot device position and reverse-geocodes it. A
// geocoding failure or an address with no components falls back to the raw
// "lat, lon" pair; Auto fails only when no position could be obtained at
// all (capability absent or permission denied), in which case the caller
// requests manual entry.
func (r *Resolver) Auto(ctx context.Context) (domain.LocationResult, error) {
	pos, err := r.locator.Locate(ctx)
	if err != nil {
		return domain.LocationResult{}, err
	}

	text := pos.String()
	addr, err := r.geocoder.ReverseGeocode(ctx, pos)
	if err != nil {
		r.logger.Warn("reverse geocoding failed, using raw coordinates",
			slog.String("error", err.Error()),
		)
	} else if formatted := geocode.Format(addr); formatted != "" {
		text = formatted
	}

	return domain.LocationResult{
		Mode: domain.LocationAuto,
		Text: text,
		Raw:  &pos,
	}, nil
}

// Extract matches free text against the gazetteer. The result text is the
// NotProvided sentinel when nothing matches.
func (r *Resolver) Extract(text string) domain.LocationResult {
	return domain.LocationResult{
		Mode: domain.LocationManual,
		Text: r.gaz.Extract(text),
	}
}

// Suggest runs extraction opportunistically over answer text (typically
// the issue/service description) and reports whether it found anything.
func (r *Resolver) Suggest(text string) (string, bool) {
	extracted := r.gaz.Extract(text)
	return extracted, gazetteer.Found(extracted)
}
