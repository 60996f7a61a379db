package mechahal

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// Transport sends one S-command and returns exactly replyLen bytes of reply.
// An error means the command was rejected by the transport or the device.
type Transport interface {
	SCmd(opcode byte, request []byte, replyLen int) ([]byte, error)
}

// HAL drives the back door of one controller. It is not safe for concurrent
// use.
type HAL struct {
	dev    Transport
	config HALConfig

	injector *Injector
}

type LogFunc func(level int, format string, param ...interface{})

type HALConfig struct {
	/* Maximum number of busy replies per NVM word, 0 means no limit */
	NVMBusyRetries int

	LogFunc LogFunc
}

// Outcome tells the caller whether the controller is still usable after an
// operation.
type Outcome int

const (
	OutcomeReturned Outcome = iota
	/* The controller was reset and will not answer anymore */
	OutcomeTerminal
)

func (o Outcome) String() string {
	if o == OutcomeTerminal {
		return "terminal"
	}
	return "returned"
}

// ProgressFunc is called with the number of bytes done so far. Returning
// false cancels the operation.
type ProgressFunc func(done int, total int) bool

func New(dev Transport, config HALConfig) *HAL {
	if config.LogFunc == nil {
		config.LogFunc = func(level int, format string, param ...interface{}) {}
	}

	h := &HAL{
		dev:    dev,
		config: config,
	}
	h.injector = newInjector(h)

	return h
}

// Injector returns the payload injector of this HAL. Its remembered payload
// address is shared by all drivers.
func (h *HAL) Injector() *Injector {
	return h.injector
}

func (h *HAL) scmd(opcode byte, request []byte, replyLen int) ([]byte, error) {
	h.config.LogFunc(3, "SCmdOut:  %02x %s", opcode, hex.EncodeToString(request))

	reply, err := h.dev.SCmd(opcode, request, replyLen)
	if err != nil {
		return nil, errors.Wrapf(err, "command %02x", opcode)
	}

	h.config.LogFunc(3, "SCmdIn:   %s", hex.EncodeToString(reply))

	if len(reply) < replyLen {
		return nil, errors.Wrapf(ErrorShortReply, "command %02x: %d < %d", opcode, len(reply), replyLen)
	}
	return reply[:replyLen], nil
}

// scmdStatus sends a command that acknowledges with a single status byte.
func (h *HAL) scmdStatus(opcode byte, request []byte, replyLen int, expected byte) ([]byte, error) {
	reply, err := h.scmd(opcode, request, replyLen)
	if err != nil {
		return nil, err
	}
	if reply[0] != expected {
		return nil, &StatusError{Opcode: opcode, Status: reply[0], Expected: expected}
	}
	return reply, nil
}

// SCmd sends an arbitrary command, logged like the ones the HAL sends itself.
func (h *HAL) SCmd(opcode byte, request []byte, replyLen int) ([]byte, error) {
	return h.scmd(opcode, request, replyLen)
}
