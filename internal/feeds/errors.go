package feeds

import "errors"

// Fetch and parse errors. ErrFetch is the I/O error kind surfaced to operators.
var (
	ErrFetch               = errors.New("can not fetch data")
	ErrUnsupportedMethod   = errors.New("unsupported source method")
	ErrUnsupportedDatatype = errors.New("unsupported source datatype")
	ErrInvalidArchive      = errors.New("invalid rules archive")
	ErrFeedTooLarge        = errors.New("feed exceeds size limit")
)
