package levels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/playmatatu/minigames/internal/tangram"
)

var ErrLevelNotFound = errors.New("level not found")

// Catalogue is the set of playable levels, keyed by id. Later sources override earlier ones.
type Catalogue struct {
	mu     sync.RWMutex
	levels map[int]tangram.Level
	store  *Store
}

// NewCatalogue builds a catalogue from levels, rejecting invalid definitions.
func NewCatalogue(levels ...tangram.Level) (*Catalogue, error) {
	c := &Catalogue{levels: make(map[int]tangram.Level, len(levels))}
	for _, l := range levels {
		if err := c.put(l); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load assembles the catalogue: built-in levels, then the pack at packPath (if set), then
// levels stored in Postgres (if store is non-nil).
func Load(ctx context.Context, packPath string, store *Store) (*Catalogue, error) {
	c, err := NewCatalogue(tangram.BuiltinLevels()...)
	if err != nil {
		return nil, err
	}
	c.store = store

	if packPath != "" {
		pack, err := LoadPack(packPath)
		if err != nil {
			return nil, err
		}
		for _, l := range pack {
			c.put(l)
		}
		log.Printf("[LEVELS] Loaded %d levels from %s", len(pack), packPath)
	}

	if store != nil {
		stored, err := store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range stored {
			c.put(l)
		}
		log.Printf("[LEVELS] Loaded %d levels from database", len(stored))
	}
	return c, nil
}

func (c *Catalogue) put(l tangram.Level) error {
	if err := l.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.levels[l.ID] = l
	c.mu.Unlock()
	return nil
}

// Get returns a private copy of the level so sessions never share piece slices.
func (c *Catalogue) Get(id int) (*tangram.Level, error) {
	c.mu.RLock()
	l, ok := c.levels[id]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrLevelNotFound, id)
	}
	cp := l
	cp.Pieces = make([]tangram.Piece, len(l.Pieces))
	copy(cp.Pieces, l.Pieces)
	return &cp, nil
}

// List returns every level ordered by id.
func (c *Catalogue) List() []tangram.Level {
	c.mu.RLock()
	out := make([]tangram.Level, 0, len(c.levels))
	for _, l := range c.levels {
		out = append(out, l)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Save validates a level, writes it through to the store when there is one, and makes it
// playable.
func (c *Catalogue) Save(ctx context.Context, l tangram.Level) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if c.store != nil {
		if err := c.store.Upsert(ctx, l); err != nil {
			return err
		}
	}
	return c.put(l)
}

// Remove disables a level in the store, when there is one, and stops new sessions from using it.
func (c *Catalogue) Remove(ctx context.Context, id int) error {
	c.mu.RLock()
	_, ok := c.levels[id]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrLevelNotFound, id)
	}
	if c.store != nil {
		if err := c.store.Disable(ctx, id); err != nil && !errors.Is(err, ErrLevelNotFound) {
			return err
		}
	}
	c.mu.Lock()
	delete(c.levels, id)
	c.mu.Unlock()
	return nil
}
