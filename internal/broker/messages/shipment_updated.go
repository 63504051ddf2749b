package messages

import "time"

// ShipmentUpdated — событие от бэкенда: у отгрузки поменялся статус.
// Гейтвей по нему сбрасывает кэш, чтобы следующий просмотр перечитал данные.
type ShipmentUpdated struct {
	OrderID        string    `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// ShipmentViewed публикуется best effort после успешного трекинга.
type ShipmentViewed struct {
	OrderID        string    `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	ViewedAt       time.Time `json:"viewed_at"`
}
