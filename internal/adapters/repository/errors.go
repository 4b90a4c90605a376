package repository

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for snapshot store errors.
var (
	ErrParse           = errors.New("snapshot file could not be parsed")
	ErrSchema          = errors.New("required columns missing")
	ErrInvalidFilename = errors.New("filename has no snapshot timestamp")
	ErrNotCSV          = errors.New("file is not a csv")
	ErrEncoding        = errors.New("unsupported text encoding")
)

// FileError explains why one file was left out of a load.
type FileError struct {
	File    string
	Missing []string // required fields absent from the header, if that was the cause
	Err     error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// SchemaError is returned by Load when no file provides the required columns.
// Present and Sample come from the first rejected file so callers can show
// what was actually read.
type SchemaError struct {
	Missing []string
	Present []string
	Sample  [][]string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: %s (found: %s)", ErrSchema,
		strings.Join(e.Missing, ", "), strings.Join(e.Present, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }
