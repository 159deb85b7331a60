// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// errors.go is the error taxonomy of spec.md §7, generalizing kraftkit's
// parser.failf/preprocessor.failf (kconfig/parser.go, kconfig/preprocessor.go
// in the teacher), both of which build a one-off "file:line:col: msg"
// fmt.Errorf string, into a typed, inspectable error.

package kconfig

import "fmt"

// Location identifies a point in Kconfig source for diagnostics.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("line %d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// LocatedError is a parse or compile error tied to a source location, so
// callers can branch on it with errors.As instead of string-matching.
type LocatedError struct {
	Location Location
	Err      error
}

func (e *LocatedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Location, e.Err)
}

func (e *LocatedError) Unwrap() error { return e.Err }

// CycleError reports a dependency cycle discovered during layering
// (spec.md §4.4/§7).
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular depends-on among: %v", e.Names)
}

// ValidationError is stored on a symbol when SetValue fails its
// kind/type-sensitive validator (spec.md §4.5 "Value validation"). It is
// observable, not returned, except from the direct SetValue call site.
type ValidationError struct {
	Entry *Entry
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	name := e.Entry.Name
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, name, e.Msg)
}
