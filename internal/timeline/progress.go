package timeline

import "github.com/lumocart/shipgate/internal/models"

// Линейный путь доставки для прогресс-индикатора. CANCELLED/RETURNED/
// FAILED_DELIVERY в него не входят намеренно: для них ни один шаг не
// подсвечивается сверх уже достигнутого.
var progressPath = []string{
	models.ShipmentStatusPending,
	models.ShipmentStatusProcessing,
	models.ShipmentStatusShipped,
	models.ShipmentStatusInTransit,
	models.ShipmentStatusOutForDelivery,
	models.ShipmentStatusDelivered,
}

type Step struct {
	Status string
	Active bool
}

// StepIndex returns the position of status on the linear delivery path.
// Terminal and divergent statuses are not on the path: (-1, false).
func StepIndex(status string) (int, bool) {
	for i, s := range progressPath {
		if s == status {
			return i, true
		}
	}
	return -1, false
}

// Steps marks every path step up to and including the shipment's current
// status as active. The current status comes from the shipment record, not
// from the timeline. For an off-path status nothing new lights up.
func Steps(status string) []Step {
	idx, _ := StepIndex(status)
	out := make([]Step, len(progressPath))
	for i, s := range progressPath {
		out[i] = Step{Status: s, Active: i <= idx}
	}
	return out
}
