package serviceability

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lumocart/shipgate/internal/backend/shippinghttp"
	"github.com/pkg/errors"
)

var (
	ErrInvalidPinCode = errors.New("pin code must be exactly 6 digits")
	ErrCheckInFlight  = errors.New("serviceability check already in flight for this pin code")
	ErrRateLimited    = errors.New("too many serviceability checks")
)

type Backend interface {
	CheckServiceability(ctx context.Context, pinCode string) (shippinghttp.ServiceabilityResult, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Service держит результаты проверок на время сессии. Повторная проверка
// уже разрешённого или выполняющегося pin-кода не ходит в сеть.
type Service struct {
	backend Backend
	limiter Limiter
	limit   int64
	window  time.Duration

	mu       sync.Mutex
	results  map[string]shippinghttp.ServiceabilityResult
	inflight map[string]struct{}
	seqs     map[string]uint64
	lastErr  string
}

func New(backend Backend, limiter Limiter, limit int64, window time.Duration) *Service {
	return &Service{
		backend:  backend,
		limiter:  limiter,
		limit:    limit,
		window:   window,
		results:  make(map[string]shippinghttp.ServiceabilityResult),
		inflight: make(map[string]struct{}),
		seqs:     make(map[string]uint64),
	}
}

// NormalizePinCode strips non-digit characters; ok only for exactly 6 digits.
func NormalizePinCode(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	pin := b.String()
	return pin, len(pin) == 6
}

// CanCheck mirrors the UI gate: the check action only enables for a valid pin.
func (s *Service) CanCheck(raw string) bool {
	_, ok := NormalizePinCode(raw)
	return ok
}

func (s *Service) Check(ctx context.Context, raw string) (shippinghttp.ServiceabilityResult, error) {
	pin, ok := NormalizePinCode(raw)
	if !ok {
		return shippinghttp.ServiceabilityResult{}, ErrInvalidPinCode
	}

	s.mu.Lock()
	if r, ok := s.results[pin]; ok {
		s.mu.Unlock()
		return r, nil
	}
	if _, ok := s.inflight[pin]; ok {
		s.mu.Unlock()
		return shippinghttp.ServiceabilityResult{}, ErrCheckInFlight
	}
	s.inflight[pin] = struct{}{}
	s.seqs[pin]++
	token := s.seqs[pin]
	s.mu.Unlock()

	if s.limiter != nil {
		allowed, _, err := s.limiter.Allow(ctx, "serviceability:"+pin, s.limit, s.window)
		// лимитер best effort: при его ошибке проверку не блокируем
		if err == nil && !allowed {
			s.mu.Lock()
			delete(s.inflight, pin)
			s.lastErr = ErrRateLimited.Error()
			s.mu.Unlock()
			return shippinghttp.ServiceabilityResult{}, ErrRateLimited
		}
	}

	res, err := s.backend.CheckServiceability(ctx, pin)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, pin)

	if s.seqs[pin] != token {
		// сессию сбросили, пока запрос летал — завершение устарело
		return res, err
	}
	if err != nil {
		// прежние результаты не трогаем
		s.lastErr = err.Error()
		return shippinghttp.ServiceabilityResult{}, errors.Wrap(err, "check serviceability")
	}

	s.results[pin] = res
	s.lastErr = ""
	return res, nil
}

// Result returns the session-cached outcome for a pin, if any.
func (s *Service) Result(raw string) (shippinghttp.ServiceabilityResult, bool) {
	pin, ok := NormalizePinCode(raw)
	if !ok {
		return shippinghttp.ServiceabilityResult{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[pin]
	return r, ok
}

func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Reset clears the session: cached results, the error, and any in-flight
// bookkeeping. Completions issued before the reset are discarded.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[string]shippinghttp.ServiceabilityResult)
	s.inflight = make(map[string]struct{})
	for pin := range s.seqs {
		s.seqs[pin]++
	}
	s.lastErr = ""
}
