// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package directory

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
)

var ErrLoadFailed = errors.New("identity directory unavailable")

// Loader fetches every known person.
type Loader interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
}

// Directory is an immutable snapshot of persons indexed by beacon, name and ID.
// It is never refreshed; a new session loads a new one.
type Directory struct {
	byBeacon map[string]models.Person
	byName   map[string]models.Person
	byID     map[string]models.Person
}

// Load takes a full snapshot. On failure no partial directory is returned.
func Load(ctx context.Context, loader Loader) (*Directory, error) {
	persons, err := loader.ListPersons(ctx)
	if err != nil {
		return nil, errors.Wrap(ErrLoadFailed, err.Error())
	}
	return New(persons), nil
}

// New indexes persons. On duplicate names or beacons the first person wins.
func New(persons []models.Person) *Directory {
	d := &Directory{
		byBeacon: make(map[string]models.Person, len(persons)),
		byName:   make(map[string]models.Person, len(persons)),
		byID:     make(map[string]models.Person, len(persons)),
	}
	for _, p := range persons {
		d.byID[p.ID] = p

		if _, dup := d.byName[p.Name]; dup {
			slog.Warn("duplicate person name in directory", "name", p.Name, "id", p.ID)
		} else {
			d.byName[p.Name] = p
		}

		if p.UUID == "" {
			continue
		}
		if _, dup := d.byBeacon[p.UUID]; dup {
			slog.Warn("duplicate beacon in directory", "uuid", p.UUID, "id", p.ID)
			continue
		}
		d.byBeacon[p.UUID] = p
	}
	return d
}

func (d *Directory) ByBeacon(uuid string) (models.Person, bool) {
	if uuid == "" {
		return models.Person{}, false
	}
	p, ok := d.byBeacon[uuid]
	return p, ok
}

func (d *Directory) ByName(name string) (models.Person, bool) {
	p, ok := d.byName[name]
	return p, ok
}

func (d *Directory) ByID(id string) (models.Person, bool) {
	p, ok := d.byID[id]
	return p, ok
}

func (d *Directory) Len() int {
	return len(d.byID)
}
