// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package feedback records post-event feedback (achievements, completion,
// rank, score, remarks) for registered participants and volunteers.
package feedback
