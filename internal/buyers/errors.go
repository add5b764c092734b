package buyers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when no lead matches the id for the acting
	// owner. It deliberately does not distinguish "exists but not yours".
	ErrNotFound = errors.New("lead not found")

	// ErrConflict is returned when the caller's revision token is stale.
	ErrConflict = errors.New("lead was modified concurrently")

	// ErrNoValidRows is returned when an import batch contains no row that
	// passes validation.
	ErrNoValidRows = errors.New("no valid buyers to import")
)

// FieldErrors collects per-field validation messages. It is an error so
// repositories can return it directly.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// AsFieldErrors unwraps err into FieldErrors if it carries any.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
