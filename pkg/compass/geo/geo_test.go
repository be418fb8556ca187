package geo

import (
	"math"
	"testing"
)

func TestHaversineZero(t *testing.T) {
	p := Point{Lat: 38.72, Lon: -9.14}
	if d := Haversine(p, p); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	london := Point{Lat: 51.5074, Lon: -0.1278}
	paris := Point{Lat: 48.8566, Lon: 2.3522}
	d := Haversine(london, paris)
	// Roughly 344 km between the two city centers.
	if math.Abs(d-344) > 5 {
		t.Fatalf("London-Paris = %.1f km, want ~344", d)
	}
	if math.Abs(Haversine(paris, london)-d) > 1e-9 {
		t.Fatal("distance should be symmetric")
	}
}

func TestHaversineAntipodal(t *testing.T) {
	d := Haversine(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 180})
	want := math.Pi * EarthRadiusKm
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("antipodal distance = %f, want %f", d, want)
	}
}

func TestFlightHours(t *testing.T) {
	if h := FlightHours(4000); h != 5 {
		t.Fatalf("FlightHours(4000) = %f, want 5", h)
	}
}
