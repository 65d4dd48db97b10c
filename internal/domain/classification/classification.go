// Package classification defines the classification metadata the core
// consumes from the classification/service-level resolver.
package classification

import "time"

// Summary is the slice of classification data the core needs: naming plus
// the service level used to derive a task's due date from its planned date.
type Summary struct {
	Key          string        `json:"key"`
	Domain       string        `json:"domain"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Category     string        `json:"category,omitempty"`
	Priority     int           `json:"priority"`
	ServiceLevel time.Duration `json:"service_level"`
}

// Due derives a due date from a planned date and a set of applicable service
// levels: planned plus the shortest positive level. A zero planned date or
// an empty level set yields a zero due date.
func Due(planned time.Time, levels ...time.Duration) time.Time {
	if planned.IsZero() {
		return time.Time{}
	}
	var shortest time.Duration
	for _, l := range levels {
		if l <= 0 {
			continue
		}
		if shortest == 0 || l < shortest {
			shortest = l
		}
	}
	if shortest == 0 {
		return time.Time{}
	}
	return planned.Add(shortest)
}
