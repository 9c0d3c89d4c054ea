// Package grf builds and mutates GRF archives, the container format used by
// Kafra-Patcher's target game client.
//
// A GRF archive is a flat binary file: a fixed header, followed by payload
// blobs and free space interleaved in no particular order, followed by a
// file table whose location is recorded in the header. Builder performs
// surgery on an existing archive (or builds a fresh one) in place: entries
// can be added, overwritten or removed, freed byte ranges are reclaimed by
// a first-fit allocator, and the file table is rewritten once, atomically
// from the caller's point of view, when Finish is called.
//
// Two on-disk format families are supported. Version 2.0 stores a
// DEFLATE-compressed, NUL-terminated-path record table. Version 1.x stores
// an uncompressed table of obfuscated, length-prefixed records, and pads and
// lightly scrambles payload bytes. Builder hides most of that difference
// behind one API; see Version for the exact behavioral split.
//
// Builder is not safe for concurrent use: it owns one underlying
// read-writer exclusively and performs its I/O synchronously.
package grf
