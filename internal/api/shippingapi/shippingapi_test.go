package shippingapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lumocart/shipgate/internal/backend/fakebackend"
	"github.com/lumocart/shipgate/internal/models"
	"github.com/lumocart/shipgate/internal/services/rates"
	"github.com/lumocart/shipgate/internal/services/serviceability"
	"github.com/lumocart/shipgate/internal/services/shipments"
	"github.com/lumocart/shipgate/internal/services/slots"
	"github.com/stretchr/testify/require"
)

type stubShipmentBackend struct {
	sh *models.Shipment
}

func (s *stubShipmentBackend) TrackShipment(ctx context.Context, ref string) (*models.Shipment, error) {
	if s.sh == nil || (ref != s.sh.TrackingNumber && ref != s.sh.OrderID) {
		return nil, models.ErrShipmentNotFound
	}
	return s.sh, nil
}

func (s *stubShipmentBackend) ListShipments(ctx context.Context, orderID string, limit, offset int) ([]*models.Shipment, error) {
	if s.sh == nil {
		return nil, nil
	}
	return []*models.Shipment{s.sh}, nil
}

func newTestAPI(shBackend shipments.Backend) *API {
	fb := fakebackend.New()
	return New(
		serviceability.New(fb, nil, 0, 0),
		slots.New(fb, nil),
		rates.New(fb),
		shipments.New(shBackend, nil, 0),
	)
}

func doReq(t *testing.T, api *API, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	return rec
}

func TestAPI_Serviceability_BadPin(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{})

	rec := doReq(t, api, http.MethodGet, "/serviceability?pin_code=12345", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doReq(t, api, http.MethodGet, "/serviceability?pin_code=abcdef", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Serviceability_OK(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{})

	rec := doReq(t, api, http.MethodGet, "/serviceability?pin_code=110001", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out serviceabilityDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	if out.Serviceable {
		require.NotEmpty(t, out.Areas)
	} else {
		require.NotEmpty(t, out.Message)
	}
}

func TestAPI_DeliverySlots_Validation(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{})

	rec := doReq(t, api, http.MethodGet, "/delivery-slots", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doReq(t, api, http.MethodGet, "/delivery-slots?pin_code=110001&date=10.03.2025", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_DeliverySlots_OK(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{})

	rec := doReq(t, api, http.MethodGet, "/delivery-slots?pin_code=110001&date=2025-03-12", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out slotsDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "2025-03-12", out.Date)
	require.Len(t, out.Dates, 7)
	require.NotEmpty(t, out.Slots)
	for _, s := range out.Slots {
		if !s.IsActive {
			require.False(t, s.Selectable)
		}
		if s.IsActive && s.AvailableCapacity == nil {
			require.True(t, s.Selectable, "unknown capacity must stay selectable")
		}
	}
}

func TestAPI_ShippingRates_Incomplete(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{})

	rec := doReq(t, api, http.MethodPost, "/shipping-rates", `{"source_pin_code":"110001"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doReq(t, api, http.MethodPost, "/shipping-rates", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ShippingRates_OK(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{})

	rec := doReq(t, api, http.MethodPost, "/shipping-rates",
		`{"source_pin_code":"110001","destination_pin_code":"400001","weight":2.5,"dimensions":{"length":10,"width":10,"height":5}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []rateDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, "2-4 days", out[0].DeliveryEstimate)
	require.Equal(t, "4 days", out[1].DeliveryEstimate)
}

func TestAPI_ShipmentTimeline_NotFound(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{})

	rec := doReq(t, api, http.MethodGet, "/shipments/NOPE/timeline", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ShipmentTimeline_OK(t *testing.T) {
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	shipped := created.Add(24 * time.Hour)
	api := newTestAPI(&stubShipmentBackend{sh: &models.Shipment{
		OrderID:        "ORD-1",
		TrackingNumber: "TRK123",
		Status:         models.ShipmentStatusInTransit,
		CreatedAt:      created,
		ShippedAt:      &shipped,
		Events: []*models.TrackingEvent{
			{Status: models.ShipmentStatusInTransit, Label: "In Transit", EventTime: shipped.Add(2 * time.Hour)},
		},
	}})

	rec := doReq(t, api, http.MethodGet, "/shipments/TRK123/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out timelineDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, models.ShipmentStatusInTransit, out.Shipment.Status)
	require.False(t, out.Empty)

	// сырое IN_TRANSIT + синтезированные PENDING и SHIPPED, новые сверху
	require.Len(t, out.Timeline, 3)
	require.Equal(t, models.ShipmentStatusInTransit, out.Timeline[0].Status)
	require.True(t, out.Timeline[0].FromEvent)
	require.False(t, out.Timeline[2].FromEvent)

	require.Len(t, out.Progress, 6)
	active := 0
	for _, s := range out.Progress {
		if s.Active {
			active++
		}
	}
	require.Equal(t, 4, active) // PENDING..IN_TRANSIT
}

func TestAPI_OrderShipments_OK(t *testing.T) {
	api := newTestAPI(&stubShipmentBackend{sh: &models.Shipment{
		OrderID:        "ORD-1",
		TrackingNumber: "TRK123",
		Status:         models.ShipmentStatusShipped,
		CreatedAt:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}})

	rec := doReq(t, api, http.MethodGet, "/orders/ORD-1/shipments", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []shipmentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "TRK123", out[0].TrackingNumber)
}
