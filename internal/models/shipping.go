package models

import (
	"fmt"
	"time"
)

// Статусы отгрузки (нормализованные, как их отдаёт shipping-бэкенд).
const (
	ShipmentStatusPending        = "PENDING"
	ShipmentStatusProcessing     = "PROCESSING"
	ShipmentStatusShipped        = "SHIPPED"
	ShipmentStatusInTransit      = "IN_TRANSIT"
	ShipmentStatusOutForDelivery = "OUT_FOR_DELIVERY"
	ShipmentStatusDelivered      = "DELIVERED"

	// Терминальные ветки вне линейного пути доставки.
	ShipmentStatusCancelled      = "CANCELLED"
	ShipmentStatusReturned       = "RETURNED"
	ShipmentStatusFailedDelivery = "FAILED_DELIVERY"
)

// ServiceableArea — одна зона доставки для pin-кода. На один pin-код
// может приходиться несколько зон (по одной на перевозчика).
type ServiceableArea struct {
	PinCode         string
	City            string
	State           string
	Country         string
	PartnerCode     string
	MinDeliveryDays int
	MaxDeliveryDays int
	IsActive        bool
}

// DeliverySlot — шаблон окна доставки. Доступность перезапрашивается
// на каждую пару (дата, pin-код).
type DeliverySlot struct {
	ID            uint64
	Name          string
	StartTime     string // "HH:MM"
	EndTime       string // "HH:MM"
	DayOfWeek     int
	AdditionalFee float64
	MaxOrders     int
	// nil — ёмкость неизвестна, считаем слот доступным при is_active.
	AvailableCapacity *int
	IsActive          bool
}

// Selectable reports whether the slot can be booked: it must be active and
// either have unknown capacity or capacity left.
func (s *DeliverySlot) Selectable() bool {
	if !s.IsActive {
		return false
	}
	return s.AvailableCapacity == nil || *s.AvailableCapacity > 0
}

type EstimateKind int

const (
	EstimateNone EstimateKind = iota
	EstimateRange
	EstimatePoint
)

// DeliveryEstimate — либо диапазон дней, либо точечная оценка, никогда обе.
type DeliveryEstimate struct {
	Kind    EstimateKind
	MinDays int
	MaxDays int
	Days    int
}

func RangeEstimate(minDays, maxDays int) DeliveryEstimate {
	return DeliveryEstimate{Kind: EstimateRange, MinDays: minDays, MaxDays: maxDays}
}

func PointEstimate(days int) DeliveryEstimate {
	return DeliveryEstimate{Kind: EstimatePoint, Days: days}
}

// String renders the user-facing delivery estimate: "3-5 days" for a range,
// "4 days" for a point estimate, empty when unknown.
func (e DeliveryEstimate) String() string {
	switch e.Kind {
	case EstimateRange:
		return fmt.Sprintf("%d-%d days", e.MinDays, e.MaxDays)
	case EstimatePoint:
		return fmt.Sprintf("%d days", e.Days)
	default:
		return ""
	}
}

// ShippingRate — котировка одного перевозчика.
type ShippingRate struct {
	CarrierCode string
	CarrierName string
	Rate        float64
	Estimate    DeliveryEstimate
	// IsDynamic: true — посчитано перевозчиком онлайн, false — из статической таблицы.
	IsDynamic bool
}

type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// TrackingEvent — сырое событие от перевозчика. Append-only, клиент его не меняет.
type TrackingEvent struct {
	Status      string
	Label       string
	Description string
	Location    *string
	EventTime   time.Time
	CreatedAt   time.Time
}

type Shipment struct {
	ID             uint64
	OrderID        string
	CarrierCode    string
	TrackingNumber string
	Status         string

	EstimatedDeliveryAt *time.Time

	Address      string
	WeightKg     float64
	Dimensions   *Dimensions
	ShippingCost float64

	CreatedAt   time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time

	Events []*TrackingEvent
}
