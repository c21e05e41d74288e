// Package catalog holds the static room configuration.  It is loaded once
// at startup and never mutated; every constraint check reads from it.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

// ErrUnknownRoom is returned by Get for ids not present in the catalog.
var ErrUnknownRoom = errors.New("unknown room")

// file is the on-disk shape of a catalog:
//
//	rooms:
//	  - id: A301
//	    name: A-301
//	    capacity: 2
//	    gender: MALE
//	  - id: S101
//	    capacity: 1
//	    gender: ANY
//	    single_room: true
type file struct {
	Rooms []model.Room `yaml:"rooms"`
}

// Catalog is an immutable, validated set of rooms.  Safe for concurrent use.
type Catalog struct {
	rooms map[string]model.Room
	order []string
}

// New validates rooms and builds a catalog.  Duplicate ids are an error.
// An empty Gender is read as GenderAny.
func New(rooms []model.Room) (*Catalog, error) {
	c := &Catalog{rooms: make(map[string]model.Room, len(rooms))}
	for _, r := range rooms {
		if r.Gender == "" {
			r.Gender = model.GenderAny
		}
		if r.Name == "" {
			r.Name = r.ID
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.rooms[r.ID]; dup {
			return nil, fmt.Errorf("duplicate room id %s", r.ID)
		}
		c.rooms[r.ID] = r
		c.order = append(c.order, r.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse room catalog: %w", err)
	}
	if len(f.Rooms) == 0 {
		return nil, errors.New("room catalog has no rooms")
	}
	return New(f.Rooms)
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read room catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Get returns the room with the given id.
func (c *Catalog) Get(id string) (model.Room, error) {
	r, ok := c.rooms[id]
	if !ok {
		return model.Room{}, fmt.Errorf("%w: %s", ErrUnknownRoom, id)
	}
	return r, nil
}

// List returns all rooms ordered by id.
func (c *Catalog) List() []model.Room {
	out := make([]model.Room, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.rooms[id])
	}
	return out
}

// Len is the number of rooms.
func (c *Catalog) Len() int { return len(c.order) }
