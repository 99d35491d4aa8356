// Package gazetteer holds the reference state/city directory used for
// free-text location extraction, and the HTTP client that loads it from the
// directory service. The directory is fetched once per process and is
// read-only afterward.
package gazetteer

import (
	"strings"

	"github.com/jantavoice/intake/internal/core/domain"
)

// Gazetteer is the immutable state-to-cities directory.
type Gazetteer struct {
	states []string
	cities map[string][]string
}

// New builds a gazetteer from a state list and a state-to-cities mapping.
// Input slices are copied; callers keep no handle into the directory.
func New(states []string, citiesByState map[string][]string) *Gazetteer {
	g := &Gazetteer{
		states: append([]string(nil), states...),
		cities: make(map[string][]string, len(citiesByState)),
	}
	for state, cities := range citiesByState {
		g.cities[state] = append([]string(nil), cities...)
	}
	return g
}

// Empty is a gazetteer with no entries. Extraction over it always returns
// the NotProvided sentinel, which is the degraded behavior when the
// directory service is unreachable.
func Empty() *Gazetteer {
	return New(nil, nil)
}

// States returns the known state names.
func (g *Gazetteer) States() []string {
	return append([]string(nil), g.states...)
}

// Extract matches free text against the directory. An exact
// case-insensitive state name wins first; otherwise every state's city list
// is scanned for a case-insensitive substring hit and rendered as
// "City, State". Text matching nothing yields the NotProvided sentinel.
func (g *Gazetteer) Extract(text string) string {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return domain.NotProvided
	}

	for _, state := range g.states {
		if needle == strings.ToLower(state) {
			return state
		}
	}

	for _, state := range g.states {
		for _, city := range g.cities[state] {
			if strings.Contains(needle, strings.ToLower(city)) {
				return city + ", " + state
			}
		}
	}

	return domain.NotProvided
}

// Found reports whether an extraction result carries a real location.
func Found(result string) bool {
	return result != "" && result != domain.NotProvided
}
