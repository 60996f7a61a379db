package mechahal

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

var probeRequest = []byte{0xA4, 0, 0, 0, 0, 0, 0, 0, 0}

func TestWaitForBackDoor(t *testing.T) {
	h, m := newMockHAL(t,
		mockExchange{opcode: 0x03, request: probeRequest, reply: []byte{0x00}},
		mockExchange{opcode: 0x03, request: probeRequest, reply: []byte{0x00}},
		mockExchange{opcode: 0x03, request: probeRequest, reply: []byte{0xA4}},
	)

	if err := h.WaitForBackDoor(context.Background(), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	m.done()
}

func TestWaitForBackDoorCancelled(t *testing.T) {
	h, c := newSimHAL(t, HALConfig{})
	c.Active = false

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := h.WaitForBackDoor(ctx, time.Millisecond); !errors.Is(err, ErrorCancelled) {
		t.Fatalf("got %v", err)
	}
}

func TestDumpMemory(t *testing.T) {
	h, c := newSimHAL(t, HALConfig{})

	ram, err := h.DumpMemory(RAMBase+0x100, 0x40)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ram, c.RAM[0x100:0x140]) {
		t.Fatal("RAM dump mismatch")
	}

	if _, err := h.DumpMemory(RAMBase+2, 8); !errors.Is(err, ErrorMisaligned) {
		t.Errorf("misaligned: %v", err)
	}

	c.Active = false
	if _, err := h.DumpMemory(RAMBase, 4); !errors.Is(err, ErrorBackDoorInactive) {
		t.Errorf("inactive: %v", err)
	}
}

func TestResetForgetsPayloadAddress(t *testing.T) {
	h, _ := newSimHAL(t, HALConfig{})

	if _, err := h.DumpKeystore(context.Background(), testKeystorePayload); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Injector().CachedAddress(); !ok {
		t.Fatal("no address remembered after dump")
	}

	if outcome, err := h.ResetAndPowerOff(); err != nil || outcome != OutcomeTerminal {
		t.Fatalf("got %v %v", outcome, err)
	}
	if addr, ok := h.Injector().CachedAddress(); ok {
		t.Fatalf("address %08x survived the reset", addr)
	}
}
