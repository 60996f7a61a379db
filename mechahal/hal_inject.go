package mechahal

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	opUploadHeader byte = 0x90
	opUploadChunk  byte = 0x8D

	uploadMaxSize   = 0x7F0
	uploadChunkSize = 0x10
	/* The header claims this much more than is sent, so the controller never
	 * starts processing it */
	uploadSizeSlack = 0x10

	payloadMinSize = 16
)

// Injector uploads payloads into controller RAM and finds where they ended
// up. The last address found is remembered and checked first next time.
type Injector struct {
	hal *HAL

	cached     uint32
	haveCached bool
}

func newInjector(h *HAL) *Injector {
	return &Injector{hal: h}
}

func (i *Injector) CachedAddress() (uint32, bool) {
	return i.cached, i.haveCached
}

func (i *Injector) ForgetAddress() {
	i.cached = 0
	i.haveCached = false
}

// UploadDisguised sends data as the body of a configuration header.
func (i *Injector) UploadDisguised(data []byte) error {
	h := i.hal

	if len(data) > uploadMaxSize {
		return errors.Wrapf(ErrorPayloadTooLarge, "%d bytes", len(data))
	}

	declared := len(data) + uploadSizeSlack
	header := []byte{0x00, byte(declared), byte(declared >> 8), 0x00, 0x00}
	if _, err := h.scmdStatus(opUploadHeader, header, 1, 0); err != nil {
		return err
	}

	for len(data) > 0 {
		n := len(data)
		if n > uploadChunkSize {
			n = uploadChunkSize
		}

		if _, err := h.scmdStatus(opUploadChunk, data[:n], 1, 0); err != nil {
			return err
		}
		data = data[n:]
	}

	return nil
}

func (i *Injector) matchesAt(ram MemoryRegion, offset int, payload []byte) (bool, error) {
	check := make([]byte, len(payload))
	n, err := ram.Access(false, offset, check)
	if err != nil {
		return false, err
	}
	return n == len(check) && bytes.Equal(check, payload), nil
}

func findPayload(ram []byte, payload []byte) (int, bool) {
	first := binary.LittleEndian.Uint32(payload)
	words := len(ram) / 4
	last := words - len(payload)/4

	for index := 0; index <= last; index++ {
		if binary.LittleEndian.Uint32(ram[index*4:]) != first {
			continue
		}
		if bytes.Equal(ram[index*4:index*4+len(payload)], payload) {
			return index * 4, true
		}
	}
	return 0, false
}

// InjectAndLocate uploads payload and returns its address in RAM.
func (i *Injector) InjectAndLocate(payload []byte) (uint32, error) {
	h := i.hal

	if len(payload) < payloadMinSize || len(payload)%4 != 0 {
		return 0, errors.Wrapf(ErrorPayloadSize, "%d bytes", len(payload))
	}

	h.config.LogFunc(2, "Flushing configuration header buffer")
	if err := i.UploadDisguised(make([]byte, uploadMaxSize)); err != nil {
		return 0, errors.Wrap(err, "flush failed")
	}

	h.config.LogFunc(2, "Uploading payload (%d bytes)", len(payload))
	if err := i.UploadDisguised(payload); err != nil {
		return 0, errors.Wrap(err, "upload failed")
	}

	ram := h.MemoryRegionGet(MemoryRegionRAM)

	if i.haveCached {
		h.config.LogFunc(2, "Attempting to reuse address %08x", i.cached)
		match, err := i.matchesAt(ram, int(i.cached-RAMBase), payload)
		if err != nil {
			h.config.LogFunc(1, "Re-reading %08x failed: %v", i.cached, err)
		} else if match {
			h.config.LogFunc(2, "Found again at %08x", i.cached)
			return i.cached, nil
		}
	}

	h.config.LogFunc(1, "Dumping RAM to locate payload")
	dump := make([]byte, ram.GetLength())
	if _, err := ram.Access(false, 0, dump); err != nil {
		return 0, errors.Wrap(err, "RAM dump failed")
	}

	offset, ok := findPayload(dump, payload)
	if !ok {
		return 0, ErrorPayloadNotFound
	}

	i.cached = RAMBase + uint32(offset)
	i.haveCached = true
	h.config.LogFunc(1, "Found payload at %08x", i.cached)

	return i.cached, nil
}
