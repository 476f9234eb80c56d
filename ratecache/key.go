package ratecache

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"rate-analysis-service/models"
)

// Fingerprint returns the normalized cache key for a rate request.
// Service types and account IDs are sorted, weight is rounded to two
// decimals, and dimensions to the nearest integer, so two logically
// identical requests produce the same key regardless of array ordering
// or sub-integer floating noise.
func Fingerprint(req models.RateRequest) string {
	services := append([]string(nil), req.ServiceTypes...)
	sort.Strings(services)

	accounts := append([]string(nil), req.AccountIDs...)
	sort.Strings(accounts)

	return fmt.Sprintf("%s|%s|%.2f|%dx%dx%d|%s|%s|%t",
		req.OriginZip,
		req.DestZip,
		math.Round(req.Weight*100)/100,
		roundDim(req.Dimensions.Length),
		roundDim(req.Dimensions.Width),
		roundDim(req.Dimensions.Height),
		strings.Join(services, ","),
		strings.Join(accounts, ","),
		req.Residential,
	)
}

func roundDim(d float64) int {
	return int(math.Round(d))
}
