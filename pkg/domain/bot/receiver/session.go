package receiver

import "sync"

// ---------- Dialogue state ----------

type State int

const (
	StateIdle State = iota
	StateChoosingService
	StateChoosingDate
	StateChoosingTime
	StateEnteringName
	StateEnteringPhone // остаёмся здесь и на экране подтверждения

	// Админские состояния вне последовательности записи
	StateAdminPanel
	StateAdminViewDate
	StateAdminSlotAddDate
	StateAdminSlotAddTime
	StateAdminSlotRemoveDate
)

// Intent distinguishes who the booking is for: the chatting user, or a
// walk-in client entered by an administrator. The booking steps themselves
// are shared.
type Intent int

const (
	IntentSelf Intent = iota
	IntentOnBehalf
)

// Draft accumulates the selections of one booking attempt.
type Draft struct {
	ServiceID string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	Name      string
	Phone     string
}

type Session struct {
	State     State
	Intent    Intent
	Draft     Draft
	AdminDate string // выбранная дата при добавлении слота
}

// Reset returns the session to idle and drops everything collected.
func (s *Session) Reset() {
	*s = Session{}
}

// ---------- Session store (in-memory, потокобезопасно) ----------

type Store struct {
	mu sync.RWMutex
	m  map[int64]*Session
}

func NewStore() *Store {
	return &Store{m: make(map[int64]*Session)}
}

func (s *Store) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[userID]; ok {
		return sess
	}
	se := &Session{}
	s.m[userID] = se
	return se
}

func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
