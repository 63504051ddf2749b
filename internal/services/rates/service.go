package rates

import (
	"context"
	"sync"

	"github.com/lumocart/shipgate/internal/backend/shippinghttp"
	"github.com/lumocart/shipgate/internal/models"
	"github.com/pkg/errors"
)

var ErrIncompleteInput = errors.New("source, destination and weight are required")

type Backend interface {
	CalculateRates(ctx context.Context, req shippinghttp.RateRequest) ([]*models.ShippingRate, error)
}

// Service — расчёт тарифов. Результаты показываются в порядке ответа
// бэкенда, сортировку сервис не навязывает.
type Service struct {
	backend Backend

	mu       sync.Mutex
	seq      uint64
	results  []*models.ShippingRate
	selected *models.ShippingRate
	lastErr  string
}

func New(backend Backend) *Service {
	return &Service{backend: backend}
}

// CanCalculate mirrors the UI gate: all three required fields must be set.
func (s *Service) CanCalculate(req shippinghttp.RateRequest) bool {
	return req.SourcePinCode != "" && req.DestinationPinCode != "" && req.WeightKg > 0
}

func (s *Service) Calculate(ctx context.Context, req shippinghttp.RateRequest) ([]*models.ShippingRate, error) {
	if !s.CanCalculate(req) {
		return nil, ErrIncompleteInput
	}

	s.mu.Lock()
	s.seq++
	token := s.seq
	s.mu.Unlock()

	got, err := s.backend.CalculateRates(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		return got, err
	}
	if err != nil {
		// выбранный слот доставки и прочие сторонние состояния не трогаем
		s.lastErr = err.Error()
		return nil, errors.Wrap(err, "calculate rates")
	}

	s.results = got
	s.lastErr = ""
	return got, nil
}

func (s *Service) Results() []*models.ShippingRate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func (s *Service) Select(r *models.ShippingRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = r
}

func (s *Service) Selected() *models.ShippingRate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ClearSelection и ClearResults — независимые операции.
func (s *Service) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

func (s *Service) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
}

func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
