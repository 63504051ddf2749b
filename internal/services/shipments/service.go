package shipments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lumocart/shipgate/internal/broker/messages"
	"github.com/lumocart/shipgate/internal/cache"
	"github.com/lumocart/shipgate/internal/correlation"
	"github.com/lumocart/shipgate/internal/models"
	"github.com/lumocart/shipgate/internal/timeline"
	"github.com/pkg/errors"
)

type Backend interface {
	TrackShipment(ctx context.Context, ref string) (*models.Shipment, error)
	ListShipments(ctx context.Context, orderID string, limit, offset int) ([]*models.Shipment, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// View — отгрузка плюс производные артефакты отображения. Таймлайн
// пересчитывается при каждом чтении; авторитетен только Shipment.Status.
type View struct {
	Shipment *models.Shipment
	Timeline []*timeline.Entry
	Steps    []timeline.Step
}

type Service struct {
	backend Backend
	cache   cache.BytesCache
	ttl     time.Duration

	producer    Producer
	viewedTopic string
	corr        *correlation.Source

	mu      sync.Mutex
	seq     uint64
	current *View
	lastErr string
}

func New(backend Backend, c cache.BytesCache, ttl time.Duration) *Service {
	return &Service{backend: backend, cache: c, ttl: ttl}
}

// EnableViewedEvents turns on best-effort shipment.viewed publishing.
func (s *Service) EnableViewedEvents(p Producer, topic string, corr *correlation.Source) {
	s.producer = p
	s.viewedTopic = topic
	s.corr = corr
}

func orderKey(orderID string) string {
	return fmt.Sprintf("shipment:order:%s:current", orderID)
}

// Track resolves a tracking number or order id into the current shipment
// view. A ref already held in cache under its order id is served without a
// network call; a fetched shipment lands in cache keyed by its order id.
func (s *Service) Track(ctx context.Context, ref string) (*View, error) {
	if ref == "" {
		return nil, errors.New("tracking number or order id is required")
	}

	if sh, ok := s.fromCache(ctx, ref); ok {
		view := buildView(sh)
		s.mu.Lock()
		s.current = view
		s.lastErr = ""
		s.mu.Unlock()
		s.publishViewed(ctx, sh)
		return view, nil
	}

	s.mu.Lock()
	s.seq++
	token := s.seq
	s.mu.Unlock()

	sh, err := s.backend.TrackShipment(ctx, ref)

	s.mu.Lock()
	if token != s.seq {
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return buildView(sh), nil
	}
	if err != nil {
		s.lastErr = err.Error()
		if errors.Is(err, models.ErrShipmentNotFound) {
			// не показываем протухшую отгрузку под ошибкой "не найдено"
			s.current = nil
		}
		s.mu.Unlock()
		return nil, errors.Wrap(err, "track shipment")
	}

	view := buildView(sh)
	s.current = view
	s.lastErr = ""
	s.mu.Unlock()

	s.toCache(ctx, sh)
	s.publishViewed(ctx, sh)
	return view, nil
}

// ListByOrder returns the shipments of one order, newest page first.
func (s *Service) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]*models.Shipment, error) {
	if orderID == "" {
		return nil, errors.New("orderId is required")
	}
	return s.backend.ListShipments(ctx, orderID, limit, offset)
}

func (s *Service) Current() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ApplyShipmentUpdated drops the cached entry so the next lookup refetches.
func (s *Service) ApplyShipmentUpdated(ctx context.Context, msg messages.ShipmentUpdated) error {
	if msg.OrderID == "" {
		return errors.New("order_id is required")
	}
	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Del(ctx, orderKey(msg.OrderID)); err != nil {
			return errors.Wrap(err, "invalidate shipment cache")
		}
	}
	return nil
}

func buildView(sh *models.Shipment) *View {
	return &View{
		Shipment: sh,
		Timeline: timeline.Derive(sh),
		Steps:    timeline.Steps(sh.Status),
	}
}

func (s *Service) fromCache(ctx context.Context, orderID string) (*models.Shipment, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, orderKey(orderID))
	if err != nil || !ok {
		return nil, false
	}
	var sh models.Shipment
	if json.Unmarshal(b, &sh) != nil {
		return nil, false
	}
	return &sh, true
}

func (s *Service) toCache(ctx context.Context, sh *models.Shipment) {
	if s.cache == nil || s.ttl <= 0 || sh.OrderID == "" {
		return
	}
	// кэш best effort: ошибки записи не всплывают
	b, _ := json.Marshal(sh)
	_ = s.cache.Set(ctx, orderKey(sh.OrderID), b, s.ttl)
}

func (s *Service) publishViewed(ctx context.Context, sh *models.Shipment) {
	if s.producer == nil || s.viewedTopic == "" {
		return
	}
	msg := messages.ShipmentViewed{
		OrderID:        sh.OrderID,
		TrackingNumber: sh.TrackingNumber,
		ViewedAt:       time.Now().UTC(),
	}
	if s.corr != nil {
		msg.CorrelationID = s.corr.ID()
	}
	b, _ := json.Marshal(msg)
	if err := s.producer.Publish(ctx, s.viewedTopic, []byte(sh.OrderID), b); err != nil {
		slog.Warn("publish shipment.viewed failed", "order_id", sh.OrderID, "err", err)
	}
}
