package finance

import "fmt"

// DataIntegrityError reports a derivation invariant violated by an
// upstream fact. It always aborts the run: a record with broken margin
// math would silently poison every downstream risk score.
type DataIntegrityError struct {
	Ref    string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation at %s: %s", e.Ref, e.Reason)
}
