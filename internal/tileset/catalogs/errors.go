package catalogs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies catalog errors. The string value doubles as a stable code for
// tooling output.
type Kind string

const (
	KindParse      Kind = "E_PARSE"
	KindReference  Kind = "E_REFERENCE"
	KindValidation Kind = "E_VALIDATION"
	KindLookup     Kind = "E_LOOKUP"
)

var (
	ErrParse      = errors.New("tileset: malformed description")
	ErrReference  = errors.New("tileset: dangling reference")
	ErrValidation = errors.New("tileset: invalid description")
	ErrLookup     = errors.New("tileset: unknown tile")
)

// NoTile is used as Error.TileID when the error is not tied to a tile.
const NoTile = -1

// Error reports the offending tile and field of a catalog failure.
type Error struct {
	Kind   Kind
	TileID int
	Field  string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.TileID != NoTile {
		fmt.Fprintf(&b, " tile=%d", e.TileID)
	}
	if e.Field != "" {
		b.WriteString(" field=")
		b.WriteString(e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrLookup) works
// without callers unpacking *Error.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindParse:
		return target == ErrParse
	case KindReference:
		return target == ErrReference
	case KindValidation:
		return target == ErrValidation
	case KindLookup:
		return target == ErrLookup
	}
	return false
}

func parseErr(field string, err error) error {
	return &Error{Kind: KindParse, TileID: NoTile, Field: field, Err: err}
}

func referenceErr(tileID int, field string, format string, args ...any) error {
	return &Error{Kind: KindReference, TileID: tileID, Field: field, Err: fmt.Errorf(format, args...)}
}

func validationErr(tileID int, field string, format string, args ...any) error {
	return &Error{Kind: KindValidation, TileID: tileID, Field: field, Err: fmt.Errorf(format, args...)}
}

// LookupError builds the error returned for ids outside the catalog. Derived services
// use it so every unknown-id failure carries the same kind.
func LookupError(tileID int) error {
	return &Error{Kind: KindLookup, TileID: tileID, Err: fmt.Errorf("no tile with id %d", tileID)}
}

// Code returns the kind code of a catalog error, or "" for nil and foreign errors.
func Code(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return string(ce.Kind)
	}
	return ""
}
