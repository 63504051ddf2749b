package render

import (
	"fmt"
	"strings"

	"github.com/lumocart/shipgate/internal/services/shipments"
	"github.com/lumocart/shipgate/internal/timeline"
)

// Timeline — текстовое представление отгрузки для CLI: прогресс-полоса
// по линейному пути плюс таймлайн, новые записи сверху.
func Timeline(view *shipments.View) string {
	if view == nil || view.Shipment == nil {
		return "no shipment\n"
	}

	var b strings.Builder
	sh := view.Shipment

	fmt.Fprintf(&b, "Order %s — %s (%s)\n", sh.OrderID, sh.TrackingNumber, sh.Status)
	if sh.EstimatedDeliveryAt != nil {
		fmt.Fprintf(&b, "Estimated delivery: %s\n", sh.EstimatedDeliveryAt.Format("2006-01-02"))
	}

	b.WriteString(progressLine(view.Steps))
	b.WriteByte('\n')

	if len(view.Timeline) == 0 {
		b.WriteString("No tracking information yet.\n")
		return b.String()
	}

	for _, e := range view.Timeline {
		marker := "•"
		if e.Source == timeline.SourceMilestone {
			marker = "◦"
		}
		fmt.Fprintf(&b, "%s %s  %s", marker, e.At.Format("2006-01-02 15:04"), e.Label)
		if e.Location != nil {
			fmt.Fprintf(&b, " @ %s", *e.Location)
		}
		if e.Description != "" {
			fmt.Fprintf(&b, " — %s", e.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func progressLine(steps []timeline.Step) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		if s.Active {
			parts = append(parts, "["+s.Status+"]")
		} else {
			parts = append(parts, " "+s.Status+" ")
		}
	}
	return strings.Join(parts, " > ")
}
