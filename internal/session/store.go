package session

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Conversation states. Handlers advance the state by writing the next one.
const (
	StateMainMenu       = "main_menu"
	StateLanguageSelect = "language_select"
	StateAIChat         = "ai_chat"
	StateSymptomCheck   = "symptom_check"
	StateDiseaseAlerts  = "disease_alerts"
	StateSelectState    = "select_state"
)

// Session is the per-user conversation state.
type Session struct {
	State    string
	Language string
}

// Store keeps per-phone sessions in a TTL cache. Lock serializes handling of
// concurrent webhook deliveries for the same phone number so two messages
// cannot race on session-state writes.
type Store struct {
	cache       *gocache.Cache
	defaultLang string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(ttl time.Duration, defaultLang string) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Store{
		cache:       gocache.New(ttl, 2*ttl),
		defaultLang: defaultLang,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-phone mutex and returns its unlock function.
func (s *Store) Lock(phoneNumber string) func() {
	s.mu.Lock()
	lock, ok := s.locks[phoneNumber]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[phoneNumber] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Get returns the user's session, creating a fresh main-menu session for
// unseen phone numbers.
func (s *Store) Get(phoneNumber string) Session {
	if v, ok := s.cache.Get(phoneNumber); ok {
		if sess, ok := v.(Session); ok {
			return sess
		}
	}
	return Session{State: StateMainMenu, Language: s.defaultLang}
}

// Set stores the user's session, refreshing its TTL.
func (s *Store) Set(phoneNumber string, sess Session) {
	s.cache.SetDefault(phoneNumber, sess)
}

// Delete drops the user's session entirely.
func (s *Store) Delete(phoneNumber string) {
	s.cache.Delete(phoneNumber)
}
