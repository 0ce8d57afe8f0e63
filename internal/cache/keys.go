package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func NearbyKey(lat, lng, radiusKm float64, category string) string {
	return fmt.Sprintf("nearby:%.4f:%.4f:%.1f:%s", lat, lng, radiusKm, category)
}

func WebhookKey(reference string) string {
	return fmt.Sprintf("webhook:%s", reference)
}

func RateLimitKey(actorID string) string {
	return fmt.Sprintf("ratelimit:%s", actorID)
}
