package grf

import (
	"golang.org/x/xerrors"
)

// Sentinel errors the core surfaces, per the error kinds a GRF builder can
// produce: missing entries, unsupported versions, values that cannot be
// represented on the wire, and allocator misuse. Wrap these with
// xerrors.Errorf("...: %w", err) for context; callers can still compare with
// errors.Is.
var (
	// ErrEntryNotFound is returned when an import references a path that
	// does not exist in the source archive.
	ErrEntryNotFound = xerrors.New("grf: entry not found")

	// ErrInvalidVersion is returned by Create/Open/Finish for an
	// unsupported major version.
	ErrInvalidVersion = xerrors.New("grf: invalid or unsupported version")

	// ErrSerialization is returned when a path cannot be represented in
	// Windows-1252, or when a size overflows a 32-bit wire field.
	ErrSerialization = xerrors.New("grf: serialization error")

	// ErrAllocator is returned by the free-space allocator on an
	// impossible alloc or an overlapping free.
	ErrAllocator = xerrors.New("grf: allocator error")
)
