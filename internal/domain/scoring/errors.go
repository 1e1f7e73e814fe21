package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrEmptyDataset = errors.New("no data to derive a weighted rating from")
)
