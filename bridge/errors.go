package bridge

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrorTooLong      = errors.New("Request or reply does not fit in a frame")
	ErrorShortReply   = errors.New("Bridge returned fewer bytes than requested")
	ErrorFraming      = errors.New("Invalid reply frame")
	ErrorCRC          = errors.New("Reply CRC mismatch")
	ErrorTimeout      = errors.New("No reply from bridge")
	ErrorRejectedSCmd = errors.New("Command rejected")
)

// RejectedError is returned when the bridge reports that the console did not
// accept a command.
type RejectedError struct {
	Opcode byte
	Status byte
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("command %02x rejected by bridge (status %02x)", e.Opcode, e.Status)
}

func (e *RejectedError) Unwrap() error {
	return ErrorRejectedSCmd
}
