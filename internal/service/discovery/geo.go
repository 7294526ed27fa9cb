package discovery

import (
	"math"
	"strings"

	"github.com/emberdating/ember-backend/internal/db"
)

const earthRadiusKm = 6371.0

// haversine computes the great-circle distance in kilometers between two
// coordinate pairs.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// distanceBetween returns the distance from a to b, or +Inf when either
// side has no stored coordinates — missing coordinates sort last.
func distanceBetween(a, b *db.User) float64 {
	if a.Latitude == nil || a.Longitude == nil || b.Latitude == nil || b.Longitude == nil {
		return math.Inf(1)
	}
	return haversine(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// sameCity reports whether both users carry the same non-empty
// normalized city string.
func sameCity(a, b *db.User) bool {
	ca := normalizeCity(a.City)
	return ca != "" && ca == normalizeCity(b.City)
}
