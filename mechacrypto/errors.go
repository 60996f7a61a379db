package mechacrypto

import "github.com/pkg/errors"

var (
	ErrorBlockSize   = errors.New("Length is not a multiple of the block size")
	ErrorNoKeys      = errors.New("No keys given")
	ErrorShortBuffer = errors.New("Output buffer too small")
	ErrorKeyMissing  = errors.New("Secret key not configured")
	ErrorKeyMismatch = errors.New("Secret key does not match its digest")
)
