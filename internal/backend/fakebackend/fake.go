package fakebackend

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/lumocart/shipgate/internal/backend/shippinghttp"
	"github.com/lumocart/shipgate/internal/models"
)

// FakeBackend — детерминированная заглушка shipping-бэкенда для локальной
// разработки и тестов: ответ полностью определяется входом.
type FakeBackend struct{}

func New() *FakeBackend { return &FakeBackend{} }

func hash(parts ...string) uint32 {
	h := fnv.New32a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte("|"))
		}
		_, _ = h.Write([]byte(p))
	}
	return h.Sum32()
}

func (f *FakeBackend) CheckServiceability(ctx context.Context, pinCode string) (shippinghttp.ServiceabilityResult, error) {
	// каждый пятый pin-код считаем необслуживаемым
	if hash(pinCode)%5 == 0 {
		return shippinghttp.ServiceabilityResult{
			Serviceable: false,
			Message:     "no partners deliver to this pin code",
		}, nil
	}
	return shippinghttp.ServiceabilityResult{
		Serviceable: true,
		Areas: []*models.ServiceableArea{
			{PinCode: pinCode, City: "Metropolis", State: "MP", Country: "IN", PartnerCode: "BLUEDART", MinDeliveryDays: 2, MaxDeliveryDays: 4, IsActive: true},
			{PinCode: pinCode, City: "Metropolis", State: "MP", Country: "IN", PartnerCode: "DELHIVERY", MinDeliveryDays: 3, MaxDeliveryDays: 6, IsActive: true},
		},
	}, nil
}

func (f *FakeBackend) AvailableSlots(ctx context.Context, deliveryDate, pinCode string) ([]*models.DeliverySlot, error) {
	day := 0
	if t, err := time.Parse("2006-01-02", deliveryDate); err == nil {
		day = int(t.Weekday())
	}
	cap1 := int(hash(deliveryDate, pinCode) % 10)
	return []*models.DeliverySlot{
		{ID: 1, Name: "Morning", StartTime: "09:00", EndTime: "12:00", DayOfWeek: day, MaxOrders: 20, AvailableCapacity: &cap1, IsActive: true},
		{ID: 2, Name: "Afternoon", StartTime: "13:00", EndTime: "17:00", DayOfWeek: day, MaxOrders: 20, IsActive: true},
		{ID: 3, Name: "Evening", StartTime: "18:00", EndTime: "21:00", DayOfWeek: day, AdditionalFee: 49, MaxOrders: 10, IsActive: day != 0},
	}, nil
}

func (f *FakeBackend) CalculateRates(ctx context.Context, req shippinghttp.RateRequest) ([]*models.ShippingRate, error) {
	base := 40 + float64(hash(req.SourcePinCode, req.DestinationPinCode)%60)
	return []*models.ShippingRate{
		{CarrierCode: "BLUEDART", CarrierName: "Blue Dart", Rate: base + 30*req.WeightKg, Estimate: models.RangeEstimate(2, 4), IsDynamic: true},
		{CarrierCode: "DELHIVERY", CarrierName: "Delhivery", Rate: base + 22*req.WeightKg, Estimate: models.PointEstimate(4), IsDynamic: false},
	}, nil
}

func (f *FakeBackend) TrackShipment(ctx context.Context, ref string) (*models.Shipment, error) {
	if ref == "" {
		return nil, models.ErrShipmentNotFound
	}

	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	shipped := created.Add(26 * time.Hour)
	loc := "Origin Hub"

	sh := &models.Shipment{
		ID:             uint64(hash(ref)),
		OrderID:        "ORD-" + ref,
		CarrierCode:    "BLUEDART",
		TrackingNumber: fmt.Sprintf("TRK%08d", hash(ref)%100_000_000),
		Status:         models.ShipmentStatusInTransit,
		Address:        "42 Sample Street, Metropolis",
		WeightKg:       1.2,
		ShippingCost:   129,
		CreatedAt:      created,
		ShippedAt:      &shipped,
		Events: []*models.TrackingEvent{
			{Status: models.ShipmentStatusShipped, Label: "Shipped", Description: "handed to carrier", Location: &loc, EventTime: shipped, CreatedAt: shipped},
			{Status: models.ShipmentStatusInTransit, Label: "In Transit", Description: "left origin hub", Location: &loc, EventTime: shipped.Add(3 * time.Hour), CreatedAt: shipped.Add(3 * time.Hour)},
		},
	}

	// каждый пятый реф считаем доставленным
	if hash(ref)%5 == 0 {
		delivered := shipped.Add(48 * time.Hour)
		sh.Status = models.ShipmentStatusDelivered
		sh.DeliveredAt = &delivered
	}
	return sh, nil
}

func (f *FakeBackend) ListShipments(ctx context.Context, orderID string, limit, offset int) ([]*models.Shipment, error) {
	if orderID == "" {
		return nil, nil
	}
	sh, err := f.TrackShipment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sh.OrderID = orderID
	return []*models.Shipment{sh}, nil
}
