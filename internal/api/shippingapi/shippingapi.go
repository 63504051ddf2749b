package shippingapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/lumocart/shipgate/internal/backend/shippinghttp"
	"github.com/lumocart/shipgate/internal/metrics"
	"github.com/lumocart/shipgate/internal/models"
	"github.com/lumocart/shipgate/internal/services/rates"
	"github.com/lumocart/shipgate/internal/services/serviceability"
	"github.com/lumocart/shipgate/internal/services/shipments"
	"github.com/lumocart/shipgate/internal/services/slots"
	"github.com/lumocart/shipgate/internal/timeline"
)

// API — HTTP-поверхность гейтвея для витрины. Тонкий слой над сервисами:
// распарсить вход, дернуть сервис, смапить ошибку на статус.
type API struct {
	serviceability *serviceability.Service
	slots          *slots.Service
	rates          *rates.Service
	shipments      *shipments.Service
}

func New(sv *serviceability.Service, sl *slots.Service, rt *rates.Service, sh *shipments.Service) *API {
	return &API{serviceability: sv, slots: sl, rates: rt, shipments: sh}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/serviceability", metrics.Middleware("serviceability", http.HandlerFunc(a.checkServiceability)))
	r.Method(http.MethodGet, "/delivery-slots", metrics.Middleware("delivery_slots", http.HandlerFunc(a.deliverySlots)))
	r.Method(http.MethodPost, "/shipping-rates", metrics.Middleware("shipping_rates", http.HandlerFunc(a.shippingRates)))
	r.Method(http.MethodGet, "/shipments/{ref}/timeline", metrics.Middleware("shipment_timeline", http.HandlerFunc(a.shipmentTimeline)))
	r.Method(http.MethodGet, "/orders/{orderID}/shipments", metrics.Middleware("order_shipments", http.HandlerFunc(a.orderShipments)))
	return r
}

type areaDTO struct {
	PinCode         string `json:"pin_code"`
	City            string `json:"city"`
	State           string `json:"state"`
	Country         string `json:"country"`
	PartnerCode     string `json:"partner_code"`
	MinDeliveryDays int    `json:"min_delivery_days"`
	MaxDeliveryDays int    `json:"max_delivery_days"`
	IsActive        bool   `json:"is_active"`
}

type serviceabilityDTO struct {
	Serviceable bool      `json:"serviceable"`
	Areas       []areaDTO `json:"areas,omitempty"`
	Message     string    `json:"message,omitempty"`
}

func (a *API) checkServiceability(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin_code")
	if !a.serviceability.CanCheck(pin) {
		writeError(w, http.StatusBadRequest, "pin_code must be exactly 6 digits")
		return
	}

	metrics.ServiceabilityChecksTotal.Inc()
	res, err := a.serviceability.Check(r.Context(), pin)
	switch {
	case errors.Is(err, serviceability.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, serviceability.ErrCheckInFlight):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		slog.Error("serviceability check failed", "pin_code", pin, "err", err)
		writeError(w, http.StatusBadGateway, "serviceability check failed")
		return
	}

	out := serviceabilityDTO{Serviceable: res.Serviceable, Message: res.Message}
	for _, area := range res.Areas {
		out.Areas = append(out.Areas, areaDTO{
			PinCode:         area.PinCode,
			City:            area.City,
			State:           area.State,
			Country:         area.Country,
			PartnerCode:     area.PartnerCode,
			MinDeliveryDays: area.MinDeliveryDays,
			MaxDeliveryDays: area.MaxDeliveryDays,
			IsActive:        area.IsActive,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type slotDTO struct {
	ID                uint64  `json:"id"`
	Name              string  `json:"name"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	AdditionalFee     float64 `json:"additional_fee"`
	AvailableCapacity *int    `json:"available_capacity"`
	IsActive          bool    `json:"is_active"`
	Selectable        bool    `json:"selectable"`
}

type slotsDTO struct {
	Date    string    `json:"date"`
	PinCode string    `json:"pin_code"`
	Dates   []string  `json:"dates"`
	Slots   []slotDTO `json:"slots"`
}

func (a *API) deliverySlots(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin_code")
	date := r.URL.Query().Get("date")
	if pin == "" {
		writeError(w, http.StatusBadRequest, "pin_code is required")
		return
	}
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	metrics.SlotQueriesTotal.Inc()
	got, err := a.slots.Query(r.Context(), date, pin)
	if err != nil {
		slog.Error("slot query failed", "pin_code", pin, "date", date, "err", err)
		writeError(w, http.StatusBadGateway, "delivery slot query failed")
		return
	}

	resolvedDate, _, _ := a.slots.Current()
	out := slotsDTO{
		Date:    resolvedDate,
		PinCode: pin,
		Dates:   a.slots.DateChips(),
		Slots:   make([]slotDTO, 0, len(got)),
	}
	for _, s := range got {
		out.Slots = append(out.Slots, slotDTO{
			ID:                s.ID,
			Name:              s.Name,
			StartTime:         s.StartTime,
			EndTime:           s.EndTime,
			AdditionalFee:     s.AdditionalFee,
			AvailableCapacity: s.AvailableCapacity,
			IsActive:          s.IsActive,
			Selectable:        s.Selectable(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type rateReqDTO struct {
	SourcePinCode      string  `json:"source_pin_code"`
	DestinationPinCode string  `json:"destination_pin_code"`
	Weight             float64 `json:"weight"`
	Dimensions         *struct {
		Length float64 `json:"length"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"dimensions"`
}

type rateDTO struct {
	CarrierCode      string  `json:"carrier_code"`
	CarrierName      string  `json:"carrier_name"`
	Rate             float64 `json:"rate"`
	DeliveryEstimate string  `json:"delivery_estimate"`
	IsDynamic        bool    `json:"is_dynamic"`
}

func (a *API) shippingRates(w http.ResponseWriter, r *http.Request) {
	var body rateReqDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := shippinghttp.RateRequest{
		SourcePinCode:      body.SourcePinCode,
		DestinationPinCode: body.DestinationPinCode,
		WeightKg:           body.Weight,
	}
	if body.Dimensions != nil {
		req.Dimensions = &models.Dimensions{
			Length: body.Dimensions.Length,
			Width:  body.Dimensions.Width,
			Height: body.Dimensions.Height,
		}
	}

	metrics.RateQuotesTotal.Inc()
	got, err := a.rates.Calculate(r.Context(), req)
	switch {
	case errors.Is(err, rates.ErrIncompleteInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("rate calculation failed", "err", err)
		writeError(w, http.StatusBadGateway, "rate calculation failed")
		return
	}

	out := make([]rateDTO, 0, len(got))
	for _, rate := range got {
		out = append(out, rateDTO{
			CarrierCode:      rate.CarrierCode,
			CarrierName:      rate.CarrierName,
			Rate:             rate.Rate,
			DeliveryEstimate: rate.Estimate.String(),
			IsDynamic:        rate.IsDynamic,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type timelineEntryDTO struct {
	Status      string    `json:"status"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	FromEvent   bool      `json:"from_event"`
}

type stepDTO struct {
	Status string `json:"status"`
	Active bool   `json:"active"`
}

type shipmentDTO struct {
	OrderID             string     `json:"order_id"`
	CarrierCode         string     `json:"carrier_code"`
	TrackingNumber      string     `json:"tracking_number"`
	Status              string     `json:"status"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at,omitempty"`
	DeliveredAt         *time.Time `json:"delivered_at,omitempty"`
}

type timelineDTO struct {
	Shipment shipmentDTO        `json:"shipment"`
	Timeline []timelineEntryDTO `json:"timeline"`
	Progress []stepDTO          `json:"progress"`
	Empty    bool               `json:"empty"`
}

func (a *API) shipmentTimeline(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	metrics.TrackingLookupsTotal.Inc()
	view, err := a.shipments.Track(r.Context(), ref)
	switch {
	case errors.Is(err, models.ErrShipmentNotFound):
		writeError(w, http.StatusNotFound, "shipment not found")
		return
	case err != nil:
		slog.Error("tracking lookup failed", "ref", ref, "err", err)
		writeError(w, http.StatusBadGateway, "tracking lookup failed")
		return
	}

	sh := view.Shipment
	out := timelineDTO{
		Shipment: shipmentDTO{
			OrderID:             sh.OrderID,
			CarrierCode:         sh.CarrierCode,
			TrackingNumber:      sh.TrackingNumber,
			Status:              sh.Status,
			EstimatedDeliveryAt: sh.EstimatedDeliveryAt,
			DeliveredAt:         sh.DeliveredAt,
		},
		Timeline: make([]timelineEntryDTO, 0, len(view.Timeline)),
		Progress: make([]stepDTO, 0, len(view.Steps)),
		Empty:    len(view.Timeline) == 0,
	}
	for _, e := range view.Timeline {
		out.Timeline = append(out.Timeline, timelineEntryDTO{
			Status:      e.Status,
			Label:       e.Label,
			Description: e.Description,
			Location:    e.Location,
			Timestamp:   e.At,
			FromEvent:   e.Source == timeline.SourceEvent,
		})
	}
	for _, s := range view.Steps {
		out.Progress = append(out.Progress, stepDTO{Status: s.Status, Active: s.Active})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) orderShipments(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	got, err := a.shipments.ListByOrder(r.Context(), orderID, 50, 0)
	if err != nil {
		slog.Error("order shipments lookup failed", "order_id", orderID, "err", err)
		writeError(w, http.StatusBadGateway, "order shipments lookup failed")
		return
	}

	out := make([]shipmentDTO, 0, len(got))
	for _, sh := range got {
		out = append(out, shipmentDTO{
			OrderID:             sh.OrderID,
			CarrierCode:         sh.CarrierCode,
			TrackingNumber:      sh.TrackingNumber,
			Status:              sh.Status,
			EstimatedDeliveryAt: sh.EstimatedDeliveryAt,
			DeliveredAt:         sh.DeliveredAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
