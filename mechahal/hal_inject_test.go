package mechahal

import (
	"errors"
	"testing"
)

func TestInjectAndLocateOffsets(t *testing.T) {
	for _, offset := range []int{0, 0x1A40, RAMSize - len(testFastDumpPayload)} {
		h, c := newSimHAL(t, HALConfig{})
		c.UploadOffset = offset

		addr, err := h.Injector().InjectAndLocate(testFastDumpPayload)
		if err != nil {
			t.Fatalf("offset %x: %v", offset, err)
		}
		if want := RAMBase + uint32(offset); addr != want {
			t.Errorf("offset %x: got %08x, want %08x", offset, addr, want)
		}
		if cached, ok := h.Injector().CachedAddress(); !ok || cached != addr {
			t.Errorf("offset %x: not memoized", offset)
		}
	}
}

func TestInjectAndLocateNotFound(t *testing.T) {
	h, c := newSimHAL(t, HALConfig{})
	c.UploadOffset = -1

	_, err := h.Injector().InjectAndLocate(testFastDumpPayload)
	if !errors.Is(err, ErrorPayloadNotFound) {
		t.Fatalf("got %v", err)
	}
	if _, ok := h.Injector().CachedAddress(); ok {
		t.Fatal("failed search was memoized")
	}
}

func TestInjectAndLocateReusesAddress(t *testing.T) {
	h, c := newSimHAL(t, HALConfig{})
	inj := h.Injector()

	first, err := inj.InjectAndLocate(testFastDumpPayload)
	if err != nil {
		t.Fatal(err)
	}

	before := c.Commands
	second, err := inj.InjectAndLocate(testFastDumpPayload)
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Fatalf("address moved: %08x -> %08x", first, second)
	}

	/* Two uploads plus one read pair per payload word, no RAM scan */
	uploads := 2 + (uploadMaxSize+uploadChunkSize-1)/uploadChunkSize + (len(testFastDumpPayload)+uploadChunkSize-1)/uploadChunkSize
	if got, want := c.Commands-before, uploads+2*len(testFastDumpPayload)/4; got != want {
		t.Errorf("memo hit used %d commands, want %d", got, want)
	}
}

func TestInjectAndLocateStaleMemo(t *testing.T) {
	h, c := newSimHAL(t, HALConfig{})
	inj := h.Injector()

	first, err := inj.InjectAndLocate(testFastDumpPayload)
	if err != nil {
		t.Fatal(err)
	}

	/* The buffer moved and the old copy got overwritten */
	copy(c.RAM[first-RAMBase:], "clobbered")
	c.UploadOffset = 0x0800

	second, err := inj.InjectAndLocate(testFastDumpPayload)
	if err != nil {
		t.Fatal(err)
	}
	if second != RAMBase+0x800 {
		t.Fatalf("got %08x, want %08x", second, RAMBase+0x800)
	}
	if cached, _ := inj.CachedAddress(); cached != second {
		t.Fatalf("memo not updated: %08x", cached)
	}
}

func TestInjectAndLocateRejectsSize(t *testing.T) {
	h, c := newSimHAL(t, HALConfig{})

	for _, n := range []int{0, 12, 18} {
		if _, err := h.Injector().InjectAndLocate(make([]byte, n)); !errors.Is(err, ErrorPayloadSize) {
			t.Errorf("%d bytes: got %v", n, err)
		}
	}
	if c.Commands != 0 {
		t.Errorf("invalid payload sent %d commands", c.Commands)
	}
}

func TestUploadDisguisedFraming(t *testing.T) {
	data := make([]byte, 0x25)
	for i := range data {
		data[i] = byte(i)
	}

	h, m := newMockHAL(t,
		mockExchange{opcode: 0x90, request: []byte{0x00, 0x35, 0x00, 0x00, 0x00}, reply: []byte{0}},
		mockExchange{opcode: 0x8D, request: data[0x00:0x10], reply: []byte{0}},
		mockExchange{opcode: 0x8D, request: data[0x10:0x20], reply: []byte{0}},
		mockExchange{opcode: 0x8D, request: data[0x20:0x25], reply: []byte{0}},
	)

	if err := h.Injector().UploadDisguised(data); err != nil {
		t.Fatal(err)
	}
	m.done()
}

func TestUploadDisguisedErrors(t *testing.T) {
	h, m := newMockHAL(t,
		mockExchange{opcode: 0x90, reply: []byte{0}},
		mockExchange{opcode: 0x8D, reply: []byte{0x05}},
	)

	err := h.Injector().UploadDisguised(make([]byte, 0x20))
	var se *StatusError
	if !errors.As(err, &se) || se.Opcode != 0x8D || se.Status != 0x05 {
		t.Fatalf("got %v", err)
	}
	m.done()

	if err := h.Injector().UploadDisguised(make([]byte, uploadMaxSize+1)); !errors.Is(err, ErrorPayloadTooLarge) {
		t.Fatalf("oversize: got %v", err)
	}
}

func TestFindPayload(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	ram := make([]byte, 64)

	/* First word matches at 8 but the rest does not */
	copy(ram[8:], payload[:4])
	copy(ram[48:], payload)

	if off, ok := findPayload(ram, payload); !ok || off != 48 {
		t.Fatalf("got %d %v", off, ok)
	}

	/* Truncated at the end of RAM */
	ram = make([]byte, 64)
	copy(ram[52:], payload)
	if _, ok := findPayload(ram, payload); ok {
		t.Fatal("matched past the end of RAM")
	}
}
