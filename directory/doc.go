// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package directory resolves beacon identifiers and names to persons from a
// snapshot loaded once per attendance session.
package directory
