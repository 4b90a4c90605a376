package model

import "errors"

// ErrUnknownGroupKey is returned for an unsupported aggregation scope.
var ErrUnknownGroupKey = errors.New("unknown group key")
