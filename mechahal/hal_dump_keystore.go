package mechahal

import (
	"context"

	"github.com/pkg/errors"
)

// DumpKeystore reads the key store 8 bytes at a time with the key store
// payload.
func (h *HAL) DumpKeystore(ctx context.Context, payload []byte) ([]byte, error) {
	if err := h.requireBackDoor(); err != nil {
		return nil, err
	}

	payloadAddr, err := h.injector.InjectAndLocate(payload)
	if err != nil {
		return nil, err
	}
	payloadAddr |= 1

	h.config.LogFunc(1, "Starting key store dump")

	keystore := make([]byte, KeystoreSize)
	for index := uint32(0); index < KeystoreSize/2; index += 4 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(ErrorCancelled, err.Error())
		}

		reply, err := h.ExecuteWord(payloadAddr, index)
		if err != nil {
			return nil, errors.Wrapf(err, "key store index %04x", index)
		}
		if reply[0] != 0x00 {
			return nil, &StatusError{Opcode: opBackDoor, Arg: index, Status: reply[0], Expected: 0}
		}

		copy(keystore[index*2:], reply[1:9])
	}

	h.config.LogFunc(1, "Key store dump complete")
	return keystore, nil
}
