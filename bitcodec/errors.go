package bitcodec

import "github.com/pkg/errors"

// Error kinds shared by everything that processes a trial file. Errors are
// always returned wrapped with context; test with errors.Is.
var (
	// ErrFormat marks a binary field of the wrong width or with characters
	// other than '0' and '1'.
	ErrFormat = errors.New("format error")

	// ErrParse marks a line with the wrong token count or an unreadable header.
	ErrParse = errors.New("parse error")

	// ErrIndex marks a label outside its declared class range.
	ErrIndex = errors.New("index error")

	// ErrRange marks an invalid size or operand: split sizes, batch sizes,
	// decoder operands outside [0,128).
	ErrRange = errors.New("range error")
)
