// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package proximity is the boundary to beacon ranging and device location.

A Ranger delivers sighting batches for a Region. Sightings are best effort:
unordered, repeated across batches and sometimes missing entirely.

Feed is the Ranger used by the server. The scanning device posts each ranging
callback and the feed queues it for the attendance session:

	feed := proximity.NewFeed(false, proximity.DefaultQueueSize)
	feed.Init()
	feed.StartRanging(proximity.DefaultRegion)
	batches, cancel := feed.Subscribe()
	defer cancel()

	feed.Publish(proximity.Batch{Beacons: beacons})

The queue is bounded; when the subscriber falls behind, new batches are
dropped and logged rather than blocking the poster.

Locator stamps sighted people with the scanning device's position.
BatchLocator reads it from the batch and reports ErrPermissionDenied or
ErrNoPositionFix when there is none.
*/
package proximity
