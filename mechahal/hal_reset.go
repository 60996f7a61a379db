package mechahal

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ResetAndPowerOff jumps to the reset vector. A successful reset never
// answers again, so OutcomeTerminal is returned and the HAL must not be used
// afterwards. The remembered payload address is dropped either way once the
// reset command was sent.
func (h *HAL) ResetAndPowerOff() (Outcome, error) {
	if err := h.requireBackDoor(); err != nil {
		return OutcomeReturned, err
	}

	_, err := h.ExecuteWord(0, 0)
	h.injector.ForgetAddress()
	if err != nil {
		return OutcomeReturned, errors.Wrap(err, "reset failed")
	}

	h.config.LogFunc(1, "Controller reset")
	return OutcomeTerminal, nil
}

// WaitForBackDoor polls Probe until the back door answers or ctx is done.
// On some patches it only activates after a disc has been read.
func (h *HAL) WaitForBackDoor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		active, err := h.Probe()
		if err != nil {
			return err
		}
		if active {
			return nil
		}

		h.config.LogFunc(2, "Back door not active yet")

		select {
		case <-ctx.Done():
			return errors.Wrap(ErrorCancelled, ctx.Err().Error())
		case <-ticker.C:
		}
	}
}
