package timeline

import (
	"testing"
	"time"

	"github.com/lumocart/shipgate/internal/models"
	"github.com/stretchr/testify/require"
)

func ts(h int) time.Time {
	return time.Date(2025, 3, 10, h, 0, 0, 0, time.UTC)
}

func tsp(h int) *time.Time {
	t := ts(h)
	return &t
}

func TestDerive_RawEventsVerbatim(t *testing.T) {
	loc := "Delhi Hub"
	sh := &models.Shipment{
		CreatedAt: ts(0),
		Events: []*models.TrackingEvent{
			{Status: models.ShipmentStatusPending, Label: "Order Placed", Description: "accepted", EventTime: ts(0)},
			{Status: models.ShipmentStatusInTransit, Label: "In Transit", Location: &loc, EventTime: ts(5)},
		},
	}

	out := Derive(sh)
	require.Len(t, out, 2)
	// newest first
	require.Equal(t, models.ShipmentStatusInTransit, out[0].Status)
	require.Equal(t, &loc, out[0].Location)
	require.Equal(t, SourceEvent, out[0].Source)
	require.Equal(t, "accepted", out[1].Description)
}

func TestDerive_MilestonesOnlyForMissingStatuses(t *testing.T) {
	sh := &models.Shipment{
		CreatedAt:   ts(0),
		ShippedAt:   tsp(3),
		DeliveredAt: tsp(9),
		Events: []*models.TrackingEvent{
			{Status: models.ShipmentStatusShipped, Label: "Shipped", EventTime: ts(3)},
		},
	}

	out := Derive(sh)
	require.Len(t, out, 3)

	// Ровно одна запись на статус, который есть среди сырых событий.
	byStatus := map[string]int{}
	for _, e := range out {
		byStatus[e.Status]++
	}
	require.Equal(t, 1, byStatus[models.ShipmentStatusShipped])

	for _, e := range out {
		switch e.Status {
		case models.ShipmentStatusShipped:
			require.Equal(t, SourceEvent, e.Source)
		case models.ShipmentStatusPending:
			require.Equal(t, SourceMilestone, e.Source)
			require.Equal(t, "Order Placed", e.Label)
		case models.ShipmentStatusDelivered:
			require.Equal(t, SourceMilestone, e.Source)
			require.Equal(t, "Delivered", e.Label)
		}
	}
}

func TestDerive_EmptyEvents_OnlyOrderPlaced(t *testing.T) {
	sh := &models.Shipment{CreatedAt: ts(1)}
	out := Derive(sh)
	require.Len(t, out, 1)
	require.Equal(t, models.ShipmentStatusPending, out[0].Status)
	require.Equal(t, "Order Placed", out[0].Label)
	require.Equal(t, SourceMilestone, out[0].Source)
}

func TestDerive_NothingToShow(t *testing.T) {
	// Ни событий, ни пригодных вех — пустой таймлайн, явный empty state выше по стеку.
	out := Derive(&models.Shipment{})
	require.Empty(t, out)

	require.Nil(t, Derive(nil))
}

func TestDerive_SortedDescending(t *testing.T) {
	sh := &models.Shipment{
		CreatedAt:   ts(0),
		ShippedAt:   tsp(4),
		DeliveredAt: tsp(8),
		Events: []*models.TrackingEvent{
			{Status: models.ShipmentStatusInTransit, EventTime: ts(6)},
			{Status: models.ShipmentStatusOutForDelivery, EventTime: ts(7)},
			{Status: models.ShipmentStatusProcessing, EventTime: ts(2)},
		},
	}

	out := Derive(sh)
	require.Len(t, out, 6)
	for i := 1; i < len(out); i++ {
		require.False(t, out[i-1].At.Before(out[i].At),
			"entries must be newest-first at %d", i)
	}
}

func TestDerive_TimestampTies_StableOrder(t *testing.T) {
	// При равных таймстемпах сырые события идут раньше синтезированных вех.
	sh := &models.Shipment{
		CreatedAt: ts(0),
		Events: []*models.TrackingEvent{
			{Status: models.ShipmentStatusProcessing, EventTime: ts(0)},
		},
	}

	out := Derive(sh)
	require.Len(t, out, 2)
	require.Equal(t, models.ShipmentStatusProcessing, out[0].Status)
	require.Equal(t, models.ShipmentStatusPending, out[1].Status)
}

func TestStepIndex_LinearPath(t *testing.T) {
	i, ok := StepIndex(models.ShipmentStatusPending)
	require.True(t, ok)
	require.Equal(t, 0, i)

	i, ok = StepIndex(models.ShipmentStatusDelivered)
	require.True(t, ok)
	require.Equal(t, 5, i)
}

func TestStepIndex_TerminalStatuses_NoIndex(t *testing.T) {
	for _, st := range []string{
		models.ShipmentStatusCancelled,
		models.ShipmentStatusReturned,
		models.ShipmentStatusFailedDelivery,
		"",
		"GARBAGE",
	} {
		i, ok := StepIndex(st)
		require.False(t, ok, st)
		require.Equal(t, -1, i, st)
	}
}

func TestSteps_InTransit_MarksPrefixActive(t *testing.T) {
	// PROCESSING активен, хотя сырого события для него может не быть:
	// прогресс считается по индексу статуса, не по наличию событий.
	steps := Steps(models.ShipmentStatusInTransit)
	require.Len(t, steps, 6)

	want := map[string]bool{
		models.ShipmentStatusPending:        true,
		models.ShipmentStatusProcessing:     true,
		models.ShipmentStatusShipped:        true,
		models.ShipmentStatusInTransit:      true,
		models.ShipmentStatusOutForDelivery: false,
		models.ShipmentStatusDelivered:      false,
	}
	for _, s := range steps {
		require.Equal(t, want[s.Status], s.Active, s.Status)
	}
}

func TestSteps_Cancelled_NothingActive(t *testing.T) {
	for _, s := range Steps(models.ShipmentStatusCancelled) {
		require.False(t, s.Active, s.Status)
	}
}
