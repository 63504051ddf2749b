package shipments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lumocart/shipgate/internal/broker/messages"
	"github.com/lumocart/shipgate/internal/correlation"
	"github.com/lumocart/shipgate/internal/models"
)

type ServiceSuite struct {
	suite.Suite

	backend  *fakeBackend
	cache    *fakeCache
	producer *fakeProducer
	svc      *Service
}

func (s *ServiceSuite) SetupTest() {
	sh := shipment(models.ShipmentStatusInTransit)
	s.backend = &fakeBackend{byRef: map[string]*models.Shipment{"TRK123": sh, "ORD-1": sh}}
	s.cache = newFakeCache()
	s.producer = &fakeProducer{}
	s.svc = New(s.backend, s.cache, 10*time.Minute)
}

func (s *ServiceSuite) TestTrack_CacheHit_RecomputesTimeline() {
	_, err := s.svc.Track(context.Background(), "TRK123")
	s.Require().NoError(err)
	s.Require().Equal(1, s.backend.trackCalls)

	view, err := s.svc.Track(context.Background(), "ORD-1")
	s.Require().NoError(err)
	s.Require().Equal(1, s.backend.trackCalls)

	// таймлайн и шаги строятся заново и при чтении из кэша
	s.Require().NotEmpty(view.Timeline)
	s.Require().Len(view.Steps, 6)
}

func (s *ServiceSuite) TestTrack_CachedPayloadIsShipmentJSON() {
	_, err := s.svc.Track(context.Background(), "TRK123")
	s.Require().NoError(err)

	raw, ok := s.cache.m["shipment:order:ORD-1:current"]
	s.Require().True(ok)

	var cached models.Shipment
	s.Require().NoError(json.Unmarshal(raw, &cached))
	s.Require().Equal("TRK123", cached.TrackingNumber)
	s.Require().Equal(models.ShipmentStatusInTransit, cached.Status)
}

func (s *ServiceSuite) TestViewedEvent_CarriesCorrelationID() {
	corr := correlation.New()
	s.svc.EnableViewedEvents(s.producer, "shipment.viewed", corr)

	_, err := s.svc.Track(context.Background(), "TRK123")
	s.Require().NoError(err)

	s.Require().Equal("shipment.viewed", s.producer.topic)
	s.Require().Equal([]string{"ORD-1"}, s.producer.keys)

	var msg messages.ShipmentViewed
	s.Require().NoError(json.Unmarshal(s.producer.values[0], &msg))
	s.Require().Equal(corr.ID(), msg.CorrelationID)
	s.Require().Equal("TRK123", msg.TrackingNumber)
}

func (s *ServiceSuite) TestApplyShipmentUpdated_OnlyNamedOrderDropped() {
	other := shipment(models.ShipmentStatusShipped)
	other.OrderID = "ORD-2"
	other.TrackingNumber = "TRK456"
	s.backend.byRef["TRK456"] = other

	_, err := s.svc.Track(context.Background(), "TRK123")
	s.Require().NoError(err)
	_, err = s.svc.Track(context.Background(), "TRK456")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.ApplyShipmentUpdated(context.Background(), messages.ShipmentUpdated{
		OrderID:   "ORD-1",
		Status:    models.ShipmentStatusDelivered,
		CheckedAt: time.Now().UTC(),
	}))

	s.Require().NotContains(s.cache.m, "shipment:order:ORD-1:current")
	s.Require().Contains(s.cache.m, "shipment:order:ORD-2:current")
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
