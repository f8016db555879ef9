package store

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for store operations.
var (
	// ErrSessionNotFound means the id is absent from the index.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoMatch means no index id starts with the given prefix.
	ErrNoMatch = errors.New("no session matches")

	// ErrInconsistent reports an invariant violation between the index
	// and the log files (an index entry without a log, or a log whose
	// first record is not the system message). Never silently repaired.
	ErrInconsistent = errors.New("session store inconsistent")
)

// Candidate is one session matched by an ambiguous prefix, in display
// form.
type Candidate struct {
	ShortID string
	Title   string
}

// AmbiguousError is returned by Resolve when a prefix matches two or
// more sessions. It is a decision error, not a retryable one: there is
// no tie-break, the user must supply more characters. Candidates carry
// the partial result the caller is expected to display.
type AmbiguousError struct {
	Prefix     string
	Candidates []Candidate
}

func (e *AmbiguousError) Error() string {
	ids := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		ids[i] = c.ShortID
	}
	return fmt.Sprintf("ambiguous session id %q: matches %s", e.Prefix, strings.Join(ids, ", "))
}
