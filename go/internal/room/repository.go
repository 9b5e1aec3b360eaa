package room

import (
	"sync"

	"github.com/mcdev12/votify/go/internal/models"
)

// Registry is the process-wide store of live rooms. It is initialized empty
// at process start and rooms are never evicted, matching the authoritative
// lifecycle: an empty, hostless room stays registered until the process
// exits. See DESIGN.md for the eviction open question.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*models.Room),
	}
}

// Insert registers a room under its id. Insertion is atomic; ids are
// uuid-generated so collisions are not handled beyond last-write-wins.
func (reg *Registry) Insert(r *models.Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.rooms[r.ID] = r
}

// Get looks up a room by id.
func (reg *Registry) Get(id string) (*models.Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// All returns every registered room. Membership is not globally indexed, so
// disconnect handling scans the full set; acceptable at the expected scale.
func (reg *Registry) All() []*models.Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rooms := make([]*models.Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Count returns the number of registered rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
