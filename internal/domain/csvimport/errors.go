package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

var ErrFileTooLarge = errors.New("import file exceeds the size limit")

// StructuralParseError aborts an import when the file itself cannot be read
// as delimited text. Nothing is written.
type StructuralParseError struct {
	Line int
	Err  error
}

func (e *StructuralParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed CSV at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed CSV: %v", e.Err)
}

func (e *StructuralParseError) Unwrap() error {
	return e.Err
}

// UnknownSchemaError is returned when the header row matches no statement layout.
type UnknownSchemaError struct {
	Headers []string
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown CSV format, headers found: [%s]", strings.Join(e.Headers, ", "))
}
