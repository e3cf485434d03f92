// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package proximity

import (
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
)

var ErrNoPositionFix = errors.New("no position fix")

// Locator yields the current position used to stamp a sighted person's
// last-known coordinates.
type Locator interface {
	Locate(b Batch) (models.Coordinates, error)
}

// BatchLocator uses the position the scanning device attached to the batch.
type BatchLocator struct {
	Now func() time.Time
}

func (l BatchLocator) Locate(b Batch) (models.Coordinates, error) {
	if b.LocationDenied {
		return models.Coordinates{}, errors.Wrap(ErrPermissionDenied, "location")
	}
	if b.Position == nil {
		return models.Coordinates{}, ErrNoPositionFix
	}

	c := *b.Position
	if c.UpdatedAt.IsZero() {
		now := time.Now
		if l.Now != nil {
			now = l.Now
		}
		c.UpdatedAt = now()
	}
	return c, nil
}
