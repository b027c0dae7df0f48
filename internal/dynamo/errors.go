package dynamo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBadRequest marks a query rejected before reaching the store:
	// missing required parameter, non-positive limit, malformed date.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound is the normal outcome of a point lookup that matched
	// nothing. Callers map it to 404 or found:false, never retry it.
	ErrNotFound = errors.New("paper not found")

	// ErrProvisionTimeout means the table never reached ACTIVE inside the
	// provisioning deadline. Fatal to a load run.
	ErrProvisionTimeout = errors.New("table provisioning timed out")
)

// PartialWriteError reports entries that stayed unwritten after the batch
// writer exhausted its retries. Reloading the affected papers is the recovery
// path: entry keys are stable, so a rewrite replaces rather than duplicates.
type PartialWriteError struct {
	UnwrittenKeys []string
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("failed to write %d entries after retries: %s",
		len(e.UnwrittenKeys), strings.Join(e.UnwrittenKeys, ", "))
}
