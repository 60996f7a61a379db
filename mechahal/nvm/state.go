package nvm

import "bytes"

type State int

const (
	StateEmpty State = iota
	StateOther
	StateIRQHook
	StateCDProtectHook
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIRQHook:
		return "IRQ hook"
	case StateCDProtectHook:
		return "CD protect hook"
	}
	return "other"
}

// BackDoorInstalled reports whether the patch window holds one of the known
// back door patches.
func (s State) BackDoorInstalled() bool {
	return s == StateIRQHook || s == StateCDProtectHook
}

// Classifier compares a patch window against the known patches. Hooks that
// are not configured never match.
type Classifier struct {
	IRQHook       []byte
	CDProtectHook []byte
	Empty         []byte
}

func (c Codec) NewClassifier(irqHook []byte, cdProtectHook []byte) *Classifier {
	return &Classifier{
		IRQHook:       irqHook,
		CDProtectHook: cdProtectHook,
		Empty:         c.MakeEmptyPatchReference(),
	}
}

func (c *Classifier) Classify(data []byte) (State, error) {
	window, err := ExtractPatchWindow(data)
	if err != nil {
		return StateOther, err
	}

	switch {
	case bytes.Equal(window, c.IRQHook):
		return StateIRQHook, nil
	case bytes.Equal(window, c.CDProtectHook):
		return StateCDProtectHook, nil
	case bytes.Equal(window, c.Empty):
		return StateEmpty, nil
	}
	return StateOther, nil
}
