package mechahal

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	nvmWriteBusy = 0x01

	nvmConfigFirstWord = NVMConfigOffset / 2
	nvmConfigEndWord   = NVMSize / 2
)

/* The write payload takes the word offset big-endian in the top half and the
 * data bytes swapped in the bottom half */
func nvmWriteArgument(wordOffset uint16, config []byte) uint32 {
	i := int(wordOffset-nvmConfigFirstWord) * 2

	var cmd [4]byte
	binary.BigEndian.PutUint16(cmd[0:], wordOffset)
	cmd[2] = config[i+1]
	cmd[3] = config[i]
	return binary.LittleEndian.Uint32(cmd[:])
}

func (h *HAL) writeNVMWord(ctx context.Context, payloadAddr uint32, wordOffset uint16, config []byte) error {
	arg := nvmWriteArgument(wordOffset, config)

	for tries := 0; ; tries++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(ErrorCancelled, "word %04x: %v", wordOffset, err)
		}
		if h.config.NVMBusyRetries > 0 && tries > h.config.NVMBusyRetries {
			return errors.Wrapf(ErrorBusyRetries, "word %04x after %d tries", wordOffset, tries)
		}

		reply, err := h.ExecuteWord(payloadAddr, arg)
		if err != nil {
			return errors.Wrapf(err, "word %04x", wordOffset)
		}

		switch reply[0] {
		case 0x00:
			return nil
		case nvmWriteBusy:
			continue
		}
		return &StatusError{Opcode: opBackDoor, Arg: arg, Status: reply[0], Expected: 0}
	}
}

// RestoreNVM writes config (the upper 0x200 bytes of an NVM image) back to
// the controller and then resets it with ResetAndPowerOff. The reset follows
// the last write directly, there is no point in between where the caller
// gets control back, so any confirmation has to happen before the call. On
// success the controller is gone and OutcomeTerminal is returned. If only the
// reset fails, the NVM is already written and the error comes back with
// OutcomeReturned.
func (h *HAL) RestoreNVM(ctx context.Context, payload []byte, config []byte) (Outcome, error) {
	if len(config) != NVMConfigSize {
		return OutcomeReturned, errors.Wrapf(ErrorInvalidConfigSize, "got %d bytes", len(config))
	}
	if err := h.requireBackDoor(); err != nil {
		return OutcomeReturned, err
	}

	payloadAddr, err := h.injector.InjectAndLocate(payload)
	if err != nil {
		return OutcomeReturned, err
	}
	payloadAddr |= 1

	h.config.LogFunc(1, "Restoring NVM configuration")
	for off := uint16(nvmConfigFirstWord); off < nvmConfigEndWord; off++ {
		if err := h.writeNVMWord(ctx, payloadAddr, off, config); err != nil {
			return OutcomeReturned, err
		}
	}
	h.config.LogFunc(1, "NVM restore complete, resetting")

	return h.ResetAndPowerOff()
}
