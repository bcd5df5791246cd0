// Package fuzz generates chaos variants from a baseline scenario by drawing
// faults from a configurable space.
//
// A Space bounds what the generator may draw: which fault dimensions are
// enabled, which error codes and stream degradations are allowed, and how
// many faults a single variant carries. Generation is deterministic: the
// same baseline, space, count, and seed always produce the same variants,
// so a failing fuzz case can be reproduced from its seed alone.
package fuzz
