package similarity

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is matched by errors.Is for any *InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient historical data")

// InsufficientDataError reports a corpus too small to produce MatchCount matches.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient historical data: need %d distinct videos, have %d", e.Need, e.Have)
}

// Is lets errors.Is(err, ErrInsufficientData) succeed.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
