package repositories

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobfit/cv-tailor/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository owns the in-memory orchestration contexts. Get returns a
// snapshot; all mutations go through Update, which serializes access per
// session. Nothing here survives a process restart.
type SessionRepository interface {
	Create() *models.Session
	Get(id uuid.UUID) (*models.Session, error)
	Update(id uuid.UUID, fn func(*models.Session) error) error
	Delete(id uuid.UUID)
	StartJanitor(ttl, sweepInterval time.Duration)
	StopJanitor()
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

type sessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry

	janitorStop chan struct{}
	janitorWG   sync.WaitGroup
}

func NewSessionRepository() SessionRepository {
	return &sessionRepository{
		sessions:    make(map[uuid.UUID]*sessionEntry),
		janitorStop: make(chan struct{}),
	}
}

func (r *sessionRepository) Create() *models.Session {
	session := models.NewSession()

	r.mu.Lock()
	r.sessions[session.ID] = &sessionEntry{session: session}
	r.mu.Unlock()

	return session.Clone()
}

func (r *sessionRepository) Get(id uuid.UUID) (*models.Session, error) {
	entry, err := r.find(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Clone(), nil
}

func (r *sessionRepository) Update(id uuid.UUID, fn func(*models.Session) error) error {
	entry, err := r.find(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := fn(entry.session); err != nil {
		return err
	}
	entry.session.LastActiveAt = time.Now()
	return nil
}

func (r *sessionRepository) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *sessionRepository) find(id uuid.UUID) (*sessionEntry, error) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// StartJanitor sweeps idle sessions in the background until StopJanitor.
func (r *sessionRepository) StartJanitor(ttl, sweepInterval time.Duration) {
	r.janitorWG.Add(1)
	go func() {
		defer r.janitorWG.Done()

		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		log.Printf("🔄 Session janitor started (ttl=%s, sweep=%s)", ttl, sweepInterval)
		for {
			select {
			case <-r.janitorStop:
				log.Println("🔄 Session janitor stopped")
				return
			case <-ticker.C:
				r.sweep(ttl)
			}
		}
	}()
}

func (r *sessionRepository) StopJanitor() {
	close(r.janitorStop)
	r.janitorWG.Wait()
}

func (r *sessionRepository) sweep(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.sessions {
		entry.mu.Lock()
		expired := entry.session.LastActiveAt.Before(cutoff)
		entry.mu.Unlock()
		if expired {
			delete(r.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		log.Printf("🧹 Swept %d idle sessions", removed)
	}
}
