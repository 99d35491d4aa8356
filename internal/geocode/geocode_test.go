package geocode

import (
	"context"
	"testing"

	"github.com/jantavoice/intake/internal/core/domain"
	"github.com/jantavoice/intake/internal/testutil"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		addr domain.Address
		want string
	}{
		{
			name: "city state country",
			addr: domain.Address{City: "Pune", State: "Maharashtra", Country: "India"},
			want: "Pune, Maharashtra, India",
		},
		{
			name: "all components",
			addr: domain.Address{
				Road:          "MG Road",
				Neighbourhood: "Camp",
				Suburb:        "Pune Cantonment",
				City:          "Pune",
				State:         "Maharashtra",
				Country:       "India",
				Postcode:      "411001",
			},
			want: "MG Road, Camp, Pune Cantonment, Pune, Maharashtra, India, 411001",
		},
		{
			name: "town used when city empty",
			addr: domain.Address{Town: "Lonavala", State: "Maharashtra"},
			want: "Lonavala, Maharashtra",
		},
		{
			name: "village used when city and town empty",
			addr: domain.Address{Village: "Ketkawale", State: "Maharashtra"},
			want: "Ketkawale, Maharashtra",
		},
		{
			name: "all empty",
			addr: domain.Address{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.addr); got != tt.want {
				t.Fatalf("Format = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReverseGeocode(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "reverse_geocode")
	defer cleanup()

	client := NewClient("https://nominatim.openstreetmap.org", testutil.VCRHTTPClient(r))

	addr, err := client.ReverseGeocode(context.Background(), domain.Coordinates{Lat: 18.5204, Lon: 73.8567})
	if err != nil {
		t.Fatalf("ReverseGeocode failed: %v", err)
	}

	if got := Format(addr); got != "Pune, Maharashtra, India, 411001" {
		t.Fatalf("formatted address = %q", got)
	}
}
