package shippinghttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lumocart/shipgate/internal/correlation"
	"github.com/lumocart/shipgate/internal/models"
	"github.com/pkg/errors"
)

// Client — клиент shipping-бэкенда (JSON over HTTPS). Все запросы несут
// bearer-токен и correlation id сессии.
type Client struct {
	baseURL string
	token   string
	corr    *correlation.Source
	httpc   *http.Client
}

func New(baseURL, token string, corr *correlation.Source) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if corr == nil {
		corr = correlation.New()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		corr:    corr,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type ServiceabilityResult struct {
	Serviceable bool
	Areas       []*models.ServiceableArea
	Message     string
}

type serviceabilityResp struct {
	Serviceable bool                  `json:"serviceable"`
	Areas       []serviceableAreaWire `json:"areas"`
	Message     string                `json:"message"`
}

type serviceableAreaWire struct {
	PinCode         string `json:"pin_code"`
	City            string `json:"city"`
	State           string `json:"state"`
	Country         string `json:"country"`
	PartnerCode     string `json:"partner_code"`
	MinDeliveryDays int    `json:"min_delivery_days"`
	MaxDeliveryDays int    `json:"max_delivery_days"`
	IsActive        bool   `json:"is_active"`
}

func (c *Client) CheckServiceability(ctx context.Context, pinCode string) (ServiceabilityResult, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ServiceabilityResult{}, errors.Wrap(err, "parse base url")
	}
	u.Path = "/shipping/serviceable-areas/check_serviceability/"

	q := u.Query()
	q.Set("pin_code", pinCode)
	u.RawQuery = q.Encode()

	var r serviceabilityResp
	if err := c.getJSON(ctx, u.String(), &r); err != nil {
		return ServiceabilityResult{}, err
	}

	out := ServiceabilityResult{Serviceable: r.Serviceable, Message: r.Message}
	for _, a := range r.Areas {
		out.Areas = append(out.Areas, &models.ServiceableArea{
			PinCode:         a.PinCode,
			City:            a.City,
			State:           a.State,
			Country:         a.Country,
			PartnerCode:     a.PartnerCode,
			MinDeliveryDays: a.MinDeliveryDays,
			MaxDeliveryDays: a.MaxDeliveryDays,
			IsActive:        a.IsActive,
		})
	}
	return out, nil
}

type deliverySlotWire struct {
	ID                uint64  `json:"id"`
	Name              string  `json:"name"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	DayOfWeek         int     `json:"day_of_week"`
	AdditionalFee     float64 `json:"additional_fee"`
	MaxOrders         int     `json:"max_orders"`
	AvailableCapacity *int    `json:"available_capacity"`
	IsActive          bool    `json:"is_active"`
}

func (c *Client) AvailableSlots(ctx context.Context, deliveryDate, pinCode string) ([]*models.DeliverySlot, error) {
	body := map[string]string{
		"delivery_date": deliveryDate,
		"pin_code":      pinCode,
	}

	var wire []deliverySlotWire
	if err := c.postJSON(ctx, "/shipping/delivery-slots/available_slots/", body, &wire); err != nil {
		return nil, err
	}

	out := make([]*models.DeliverySlot, 0, len(wire))
	for _, w := range wire {
		out = append(out, &models.DeliverySlot{
			ID:                w.ID,
			Name:              w.Name,
			StartTime:         w.StartTime,
			EndTime:           w.EndTime,
			DayOfWeek:         w.DayOfWeek,
			AdditionalFee:     w.AdditionalFee,
			MaxOrders:         w.MaxOrders,
			AvailableCapacity: w.AvailableCapacity,
			IsActive:          w.IsActive,
		})
	}
	return out, nil
}

type RateRequest struct {
	SourcePinCode      string
	DestinationPinCode string
	WeightKg           float64
	Dimensions         *models.Dimensions
}

type rateResultWire struct {
	CarrierCode     string  `json:"carrier_code"`
	CarrierName     string  `json:"carrier_name"`
	Rate            float64 `json:"rate"`
	MinDeliveryDays *int    `json:"min_delivery_days"`
	MaxDeliveryDays *int    `json:"max_delivery_days"`
	EstimatedDays   *int    `json:"estimated_days"`
	IsDynamic       bool    `json:"is_dynamic"`
}

func (c *Client) CalculateRates(ctx context.Context, req RateRequest) ([]*models.ShippingRate, error) {
	body := map[string]any{
		"source_pin_code":      req.SourcePinCode,
		"destination_pin_code": req.DestinationPinCode,
		"weight":               req.WeightKg,
	}
	if d := req.Dimensions; d != nil {
		body["dimensions"] = map[string]float64{
			"length": d.Length,
			"width":  d.Width,
			"height": d.Height,
		}
	}

	var wire []rateResultWire
	if err := c.postJSON(ctx, "/shipping/shipping-rates/calculate/", body, &wire); err != nil {
		return nil, err
	}

	out := make([]*models.ShippingRate, 0, len(wire))
	for _, w := range wire {
		out = append(out, &models.ShippingRate{
			CarrierCode: w.CarrierCode,
			CarrierName: w.CarrierName,
			Rate:        w.Rate,
			Estimate:    decodeEstimate(w),
			IsDynamic:   w.IsDynamic,
		})
	}
	return out, nil
}

// decodeEstimate разворачивает optional-поля бэкенда в tagged variant.
// Обе формы сразу — нарушение контракта: логируем и берём диапазон.
func decodeEstimate(w rateResultWire) models.DeliveryEstimate {
	hasRange := w.MinDeliveryDays != nil && w.MaxDeliveryDays != nil
	if hasRange && w.EstimatedDays != nil {
		slog.Warn("rate result carries both estimate forms, keeping range",
			"carrier", w.CarrierCode,
			"min_days", *w.MinDeliveryDays,
			"max_days", *w.MaxDeliveryDays,
			"estimated_days", *w.EstimatedDays,
		)
	}
	switch {
	case hasRange:
		return models.RangeEstimate(*w.MinDeliveryDays, *w.MaxDeliveryDays)
	case w.EstimatedDays != nil:
		return models.PointEstimate(*w.EstimatedDays)
	default:
		return models.DeliveryEstimate{}
	}
}

type trackingEventWire struct {
	Status      string    `json:"status"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Location    *string   `json:"location"`
	EventTime   time.Time `json:"event_time"`
	CreatedAt   time.Time `json:"created_at"`
}

type shipmentWire struct {
	ID                  uint64     `json:"id"`
	OrderID             string     `json:"order_id"`
	CarrierCode         string     `json:"carrier_code"`
	TrackingNumber      string     `json:"tracking_number"`
	Status              string     `json:"status"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at"`
	Address             string     `json:"delivery_address"`
	Weight              float64    `json:"weight"`
	Dimensions          *struct {
		Length float64 `json:"length"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"dimensions"`
	ShippingCost float64    `json:"shipping_cost"`
	CreatedAt    time.Time  `json:"created_at"`
	ShippedAt    *time.Time `json:"shipped_at"`
	DeliveredAt  *time.Time `json:"delivered_at"`
}

type trackResp struct {
	Shipment        shipmentWire        `json:"shipment"`
	TrackingHistory []trackingEventWire `json:"tracking_history"`
}

// TrackShipment принимает трек-номер или order id — бэкенд резолвит оба.
func (c *Client) TrackShipment(ctx context.Context, ref string) (*models.Shipment, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	u.Path = fmt.Sprintf("/shipping/shipments/%s/track/", url.PathEscape(ref))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	c.auth(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(models.ErrShipmentNotFound, "ref %q", ref)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("shipping backend http %d", resp.StatusCode)
	}

	var r trackResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return toShipment(r.Shipment, r.TrackingHistory), nil
}

type listResp struct {
	Count   int            `json:"count"`
	Results []shipmentWire `json:"results"`
}

func (c *Client) ListShipments(ctx context.Context, orderID string, limit, offset int) ([]*models.Shipment, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	u.Path = "/shipping/shipments/"

	q := u.Query()
	if orderID != "" {
		q.Set("order", orderID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprint(offset))
	}
	u.RawQuery = q.Encode()

	var r listResp
	if err := c.getJSON(ctx, u.String(), &r); err != nil {
		return nil, err
	}

	out := make([]*models.Shipment, 0, len(r.Results))
	for _, w := range r.Results {
		out = append(out, toShipment(w, nil))
	}
	return out, nil
}

func toShipment(w shipmentWire, history []trackingEventWire) *models.Shipment {
	sh := &models.Shipment{
		ID:                  w.ID,
		OrderID:             w.OrderID,
		CarrierCode:         w.CarrierCode,
		TrackingNumber:      w.TrackingNumber,
		Status:              w.Status,
		EstimatedDeliveryAt: w.EstimatedDeliveryAt,
		Address:             w.Address,
		WeightKg:            w.Weight,
		ShippingCost:        w.ShippingCost,
		CreatedAt:           w.CreatedAt,
		ShippedAt:           w.ShippedAt,
		DeliveredAt:         w.DeliveredAt,
	}
	if w.Dimensions != nil {
		sh.Dimensions = &models.Dimensions{
			Length: w.Dimensions.Length,
			Width:  w.Dimensions.Width,
			Height: w.Dimensions.Height,
		}
	}
	for _, e := range history {
		sh.Events = append(sh.Events, &models.TrackingEvent{
			Status:      e.Status,
			Label:       e.Label,
			Description: e.Description,
			Location:    e.Location,
			EventTime:   e.EventTime,
			CreatedAt:   e.CreatedAt,
		})
	}
	return sh
}

func (c *Client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.corr.AddToHeaders(req.Header)
}

func (c *Client) getJSON(ctx context.Context, rawurl string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	c.auth(req)
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path

	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shipping backend http %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}
