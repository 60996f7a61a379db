package mechahal

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrorBackDoorInactive  = errors.New("Back door is not active")
	ErrorUnexpectedStatus  = errors.New("Unexpected status byte in reply")
	ErrorShortReply        = errors.New("Reply is shorter than requested")
	ErrorPayloadSize       = errors.New("Payload must be at least 16 bytes and a multiple of 4")
	ErrorPayloadTooLarge   = errors.New("Data too large for a configuration header")
	ErrorPayloadNotFound   = errors.New("Payload not found in RAM")
	ErrorChecksum          = errors.New("Checksum mismatch")
	ErrorCancelled         = errors.New("The operation was cancelled")
	ErrorBusyRetries       = errors.New("Device stayed busy")
	ErrorMisaligned        = errors.New("Address or size is not word aligned")
	ErrorWriteNotAllowed   = errors.New("Memory can't be written")
	ErrorInvalidConfigSize = errors.New("NVM configuration must be 0x200 bytes")
)

// PhaseError reports a status mismatch in one phase of a two-phase back door
// command.
type PhaseError struct {
	Op       string
	Phase    string
	Addr     uint32
	Status   byte
	Expected byte
	Err      error
}

func (e *PhaseError) Error() string {
	if e.Err == ErrorBackDoorInactive {
		return fmt.Sprintf("%s %08x: %s phase: %v", e.Op, e.Addr, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %08x: %s phase: status %02x, expected %02x", e.Op, e.Addr, e.Phase, e.Status, e.Expected)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// StatusError is returned by single-step commands and payload replies.
type StatusError struct {
	Opcode   byte
	Arg      uint32
	Status   byte
	Expected byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("command %02x (arg %08x): status %02x, expected %02x", e.Opcode, e.Arg, e.Status, e.Expected)
}

func (e *StatusError) Unwrap() error {
	return ErrorUnexpectedStatus
}

type ChecksumError struct {
	Addr uint32
	Got  byte
	Want byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("chunk at %08x: checksum %02x, expected %02x", e.Addr, e.Got, e.Want)
}

func (e *ChecksumError) Unwrap() error {
	return ErrorChecksum
}
