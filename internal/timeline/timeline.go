package timeline

import (
	"sort"
	"time"

	"github.com/lumocart/shipgate/internal/models"
)

type Source int

const (
	SourceEvent Source = iota
	SourceMilestone
)

// Entry — одна строка таймлайна. Считается заново при каждом чтении отгрузки,
// нигде не сохраняется.
type Entry struct {
	Status      string
	Label       string
	Description string
	Location    *string
	At          time.Time
	Source      Source
}

// Derive builds the display timeline for a shipment: every raw carrier event
// verbatim, plus synthesized milestones for statuses the raw history never
// reported. The result is sorted newest-first; ties keep insertion order
// (raw events in backend order, then PENDING/SHIPPED/DELIVERED milestones).
func Derive(sh *models.Shipment) []*Entry {
	if sh == nil {
		return nil
	}

	entries := make([]*Entry, 0, len(sh.Events)+3)
	seen := make(map[string]struct{}, len(sh.Events))
	for _, ev := range sh.Events {
		entries = append(entries, &Entry{
			Status:      ev.Status,
			Label:       ev.Label,
			Description: ev.Description,
			Location:    ev.Location,
			At:          ev.EventTime,
			Source:      SourceEvent,
		})
		seen[ev.Status] = struct{}{}
	}

	// Вехи синтезируем только для статусов, которых нет среди сырых событий,
	// и только из непустых таймстемпов.
	if _, ok := seen[models.ShipmentStatusPending]; !ok && !sh.CreatedAt.IsZero() {
		entries = append(entries, &Entry{
			Status: models.ShipmentStatusPending,
			Label:  "Order Placed",
			At:     sh.CreatedAt,
			Source: SourceMilestone,
		})
	}
	if _, ok := seen[models.ShipmentStatusShipped]; !ok && sh.ShippedAt != nil {
		entries = append(entries, &Entry{
			Status: models.ShipmentStatusShipped,
			Label:  "Shipped",
			At:     *sh.ShippedAt,
			Source: SourceMilestone,
		})
	}
	if _, ok := seen[models.ShipmentStatusDelivered]; !ok && sh.DeliveredAt != nil {
		entries = append(entries, &Entry{
			Status: models.ShipmentStatusDelivered,
			Label:  "Delivered",
			At:     *sh.DeliveredAt,
			Source: SourceMilestone,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.After(entries[j].At)
	})
	return entries
}
