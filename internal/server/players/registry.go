// Package players remembers the players the server has seen so admin
// commands can refer to them by name.
package players

import (
	"strings"
	"sync"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/google/uuid"
)

type Registry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]models.Player
	byName map[string]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{byID: map[uuid.UUID]models.Player{}, byName: map[string]uuid.UUID{}}
}

// Remember records the latest identity seen for a player.
func (r *Registry) Remember(p models.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[p.ID]; ok && old.Name != p.Name {
		delete(r.byName, strings.ToLower(old.Name))
	}
	r.byID[p.ID] = p
	if p.Name != "" {
		r.byName[strings.ToLower(p.Name)] = p.ID
	}
}

// Lookup resolves a UUID or a case-insensitive name. An unknown but valid
// UUID resolves to a bare player with that id.
func (r *Registry) Lookup(ref string) (models.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, err := uuid.Parse(ref); err == nil {
		if p, ok := r.byID[id]; ok {
			return p, nil
		}
		return models.Player{ID: id, Name: ref}, nil
	}
	if id, ok := r.byName[strings.ToLower(ref)]; ok {
		return r.byID[id], nil
	}
	return models.Player{}, common.ErrorNotFound
}
