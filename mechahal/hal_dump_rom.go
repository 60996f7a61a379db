package mechahal

import (
	"context"

	"github.com/pkg/errors"
)

const (
	romChunkSize   = 14
	romPageSize    = 0x1000
	romReplyStatus = 0x69
)

func romChunkChecksum(romAddr uint32, data []byte) byte {
	var sum byte
	for i := 0; i < 4; i++ {
		sum += byte(romAddr >> (i * 8))
	}
	for _, m := range data {
		sum += m
	}
	return ^sum
}

func (h *HAL) dumpROMChunk(out []byte, romAddr uint32, payloadAddr uint32) error {
	reply, err := h.ExecuteWord(payloadAddr, romAddr)
	if err != nil {
		return errors.Wrapf(err, "ROM chunk at %08x", romAddr)
	}

	if reply[0] != romReplyStatus {
		return &StatusError{Opcode: opBackDoor, Arg: romAddr, Status: reply[0], Expected: romReplyStatus}
	}

	data := reply[2 : 2+romChunkSize]
	if want := romChunkChecksum(romAddr, data); reply[1] != want {
		return &ChecksumError{Addr: romAddr, Got: reply[1], Want: want}
	}

	copy(out, data)
	return nil
}

func checkCancel(ctx context.Context, progress ProgressFunc, done int, total int) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrorCancelled, err.Error())
	}
	if progress != nil && !progress(done, total) {
		return ErrorCancelled
	}
	return nil
}

// DumpROM reads the whole ROM with the fast dump payload. Nothing is
// returned unless every chunk passed its checksum.
func (h *HAL) DumpROM(ctx context.Context, payload []byte, progress ProgressFunc) ([]byte, error) {
	if err := h.requireBackDoor(); err != nil {
		return nil, err
	}

	payloadAddr, err := h.injector.InjectAndLocate(payload)
	if err != nil {
		return nil, err
	}
	payloadAddr |= 1

	h.config.LogFunc(1, "Starting ROM dump")

	rom := make([]byte, ROMSize)
	end := ROMBase + ROMSize
	prevPage := ^uint32(0)

	addr := ROMBase
	for ; end-addr >= romChunkSize; addr += romChunkSize {
		if page := addr &^ (romPageSize - 1); page != prevPage {
			prevPage = page
			h.config.LogFunc(2, "ROM dump at %08x", page)
			if err := checkCancel(ctx, progress, int(page-ROMBase), ROMSize); err != nil {
				return nil, err
			}
		}

		if err := h.dumpROMChunk(rom[addr-ROMBase:], addr, payloadAddr); err != nil {
			return nil, err
		}
	}

	/* The last partial chunk is read from end-14 and only the tail is kept */
	if addr < end {
		var last [romChunkSize]byte
		if err := h.dumpROMChunk(last[:], end-romChunkSize, payloadAddr); err != nil {
			return nil, err
		}
		copy(rom[addr-ROMBase:], last[romChunkSize-(end-addr):])
	}

	h.config.LogFunc(1, "ROM dump complete")
	if progress != nil {
		progress(ROMSize, ROMSize)
	}

	return rom, nil
}
