package tracker

import (
	"errors"

	"github.com/ramonehamilton/snap-companion/internal/snap/statereader"
	"github.com/ramonehamilton/snap-companion/internal/storage"
)

// ErrorKind classifies tracker failures for the error log.
type ErrorKind string

const (
	KindLocatorMiss     ErrorKind = "locator-miss"
	KindReadTorn        ErrorKind = "read-torn"
	KindShapeMissing    ErrorKind = "shape-missing"
	KindCollectionStale ErrorKind = "collection-stale"
	KindSchemaDuplicate ErrorKind = "schema-duplicate"
	KindInternal        ErrorKind = "internal"
)

// ErrCollectionStale is returned when the selected deck cannot be found in
// the collection file.
var ErrCollectionStale = errors.New("selected deck not found in collection")

// Classify maps an error to its kind.
func Classify(err error) ErrorKind {
	var readErr *statereader.ReadError
	var shapeErr *statereader.ShapeError

	switch {
	case errors.Is(err, statereader.ErrStateFileNotFound):
		return KindLocatorMiss
	case errors.As(err, &readErr):
		return KindReadTorn
	case errors.As(err, &shapeErr):
		return KindShapeMissing
	case errors.Is(err, ErrCollectionStale):
		return KindCollectionStale
	case errors.Is(err, storage.ErrUniqueIndexPending):
		return KindSchemaDuplicate
	}
	return KindInternal
}
