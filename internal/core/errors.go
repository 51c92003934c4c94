package core

import "errors"

// Error taxonomy for record operations. Every error returned by the store,
// serializer, editor and projector wraps exactly one of these, so callers can
// branch with errors.Is and the editor can report a stable kind.
var (
	// ErrEmptyInput means an import had no header row.
	ErrEmptyInput = errors.New("empty input")

	// ErrFormat covers row/field-count mismatches on import and unknown or
	// invalid field names and values on update.
	ErrFormat = errors.New("format error")

	// ErrNotFound means a key lookup matched no record.
	ErrNotFound = errors.New("record not found")

	// ErrIndex means a record position was out of range. It signals a caller
	// bug rather than bad user input.
	ErrIndex = errors.New("index out of range")

	// ErrUnknownDataset means no dataset is registered under the given key.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// Error kind names reported by the editor collaborator interface.
const (
	KindEmptyInputError = "EmptyInputError"
	KindFormatError     = "FormatError"
	KindNotFoundError   = "NotFoundError"
	KindIndexError      = "IndexError"
	KindUnknownDataset  = "UnknownDatasetError"
	KindInternalError   = "InternalError"
)

// ErrorKind returns the taxonomy name for err, or "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInputError
	case errors.Is(err, ErrFormat):
		return KindFormatError
	case errors.Is(err, ErrNotFound):
		return KindNotFoundError
	case errors.Is(err, ErrIndex):
		return KindIndexError
	case errors.Is(err, ErrUnknownDataset):
		return KindUnknownDataset
	default:
		return KindInternalError
	}
}
