package correlation

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const Header = "X-Correlation-ID"

// Source выдаёт correlation id на время сессии. Id создаётся при первом
// обращении и живёт до явного Reset. Инжектится в HTTP-клиент зависимостью,
// не глобалкой.
type Source struct {
	mu sync.Mutex
	id string
}

func New() *Source {
	return &Source{}
}

func (s *Source) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" {
		s.id = uuid.NewString()
	}
	return s.id
}

// AddToHeaders attaches the session correlation id to outgoing headers.
func (s *Source) AddToHeaders(h http.Header) http.Header {
	h.Set(Header, s.ID())
	return h
}

// Reset drops the current id; the next ID call mints a new one.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
}
