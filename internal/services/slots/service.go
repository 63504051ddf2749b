package slots

import (
	"context"
	"sync"
	"time"

	"github.com/lumocart/shipgate/internal/models"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

type Backend interface {
	AvailableSlots(ctx context.Context, deliveryDate, pinCode string) ([]*models.DeliverySlot, error)
}

// Service держит последний список слотов и одну текущую выбранную позицию.
// Новый запрос полностью вытесняет прежний список; выбор идемпотентен.
type Service struct {
	backend  Backend
	now      func() time.Time
	onSelect func(*models.DeliverySlot)

	mu       sync.Mutex
	seq      uint64
	date     string
	pinCode  string
	slots    []*models.DeliverySlot
	selected *models.DeliverySlot
	lastErr  string
}

func New(backend Backend, onSelect func(*models.DeliverySlot)) *Service {
	return &Service{
		backend:  backend,
		now:      time.Now,
		onSelect: onSelect,
	}
}

// DateChips returns the selectable dates: today plus the next 6 calendar days.
func (s *Service) DateChips() []string {
	today := s.now()
	out := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, today.AddDate(0, 0, i).Format(dateLayout))
	}
	return out
}

// Query fetches slots for (date, pin code). An empty date means today.
// A completion that is no longer the latest issued query is discarded.
func (s *Service) Query(ctx context.Context, date, pinCode string) ([]*models.DeliverySlot, error) {
	if pinCode == "" {
		return nil, errors.New("pinCode is required")
	}
	if date == "" {
		date = s.now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, errors.Wrap(err, "parse delivery date")
	}

	s.mu.Lock()
	s.seq++
	token := s.seq
	s.mu.Unlock()

	got, err := s.backend.AvailableSlots(ctx, date, pinCode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		// пришёл ответ на уже вытесненный запрос
		return got, err
	}
	if err != nil {
		s.lastErr = err.Error()
		return nil, errors.Wrap(err, "available slots")
	}

	// старый список не мержим, а выбрасываем целиком
	s.date = date
	s.pinCode = pinCode
	s.slots = got
	s.lastErr = ""
	return got, nil
}

// Select sets the single current selection. Selecting the already-selected
// slot is a no-op, not a toggle; the callback fires only on change.
func (s *Service) Select(slot *models.DeliverySlot) {
	if slot == nil {
		return
	}
	s.mu.Lock()
	if s.selected != nil && s.selected.ID == slot.ID {
		s.mu.Unlock()
		return
	}
	s.selected = slot
	cb := s.onSelect
	s.mu.Unlock()

	if cb != nil {
		cb(slot)
	}
}

func (s *Service) Selected() *models.DeliverySlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ClearSelection drops the current selection without touching the slot list.
func (s *Service) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// Current returns the last resolved (date, pinCode) and its slot list.
func (s *Service) Current() (date, pinCode string, slots []*models.DeliverySlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date, s.pinCode, s.slots
}

func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
