package mechahal

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

type MemoryRegionNameType string

const (
	MemoryRegionROM       MemoryRegionNameType = "ROM"
	MemoryRegionRAM       MemoryRegionNameType = "RAM"
	MemoryRegionNVM       MemoryRegionNameType = "NVM"
	MemoryRegionNVMConfig MemoryRegionNameType = "NVMCONFIG"
	MemoryRegionNVMPatch  MemoryRegionNameType = "NVMPATCH"
)

const (
	ROMBase uint32 = 0x00000000
	ROMSize        = 0x44000
	RAMBase uint32 = 0x02000000
	RAMSize        = 0x4000

	NVMSize            = 0x400
	NVMConfigOffset    = 0x200
	NVMConfigSize      = 0x200
	NVMPatchOffset     = 0x320
	NVMPatchWindowSize = 0xE0

	KeystoreSize = 0x400
)

/* Word reads through the back door, one read command pair per word */
type backDoorRegion struct {
	hal    *HAL
	base   uint32
	length int
	name   MemoryRegionNameType
}

func (b backDoorRegion) GetName() MemoryRegionNameType {
	return b.name
}

func (b backDoorRegion) GetLength() int {
	return b.length
}

func (b backDoorRegion) GetParent() (MemoryRegion, int) {
	return nil, 0
}

func (b backDoorRegion) GetAlignment() int {
	return 4
}

func (b backDoorRegion) Access(write bool, addr int, buf []byte) (int, error) {
	if write {
		return 0, ErrorWriteNotAllowed
	}
	if addr >= b.length {
		return 0, nil
	}
	if addr+len(buf) > b.length {
		buf = buf[:b.length-addr]
	}

	return b.hal.readWords(b.base+uint32(addr), buf)
}

/* NVM is read a 16-bit word at a time with command 0x0A */
type nvmRegion struct {
	hal *HAL
}

func (n nvmRegion) GetName() MemoryRegionNameType {
	return MemoryRegionNVM
}

func (n nvmRegion) GetLength() int {
	return NVMSize
}

func (n nvmRegion) GetParent() (MemoryRegion, int) {
	return nil, 0
}

func (n nvmRegion) GetAlignment() int {
	return 2
}

func (n nvmRegion) Access(write bool, addr int, buf []byte) (int, error) {
	if write {
		/* Writing needs an injected payload, see RestoreNVM */
		return 0, ErrorWriteNotAllowed
	}
	if addr >= NVMSize {
		return 0, nil
	}

	word, err := n.hal.readNVMWord(uint16(addr / 2))
	if err != nil {
		return 0, err
	}

	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], word)
	return copy(buf, tmp[addr&1:]), nil
}

func (h *HAL) readWords(addr uint32, buf []byte) (int, error) {
	var tmp [4]byte

	n := 0
	for n < len(buf) {
		word, err := h.ReadWord(addr + uint32(n))
		if err != nil {
			return n, errors.Wrapf(err, "failed to read address %08x", addr+uint32(n))
		}

		binary.LittleEndian.PutUint32(tmp[:], word)
		n += copy(buf[n:], tmp[:])
	}

	return n, nil
}

// DumpMemory reads size bytes starting at addr, one word at a time. Any
// failed read aborts the dump.
func (h *HAL) DumpMemory(addr uint32, size int) ([]byte, error) {
	if (addr|uint32(size))%4 != 0 {
		return nil, ErrorMisaligned
	}
	if err := h.requireBackDoor(); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	if _, err := h.readWords(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (h *HAL) MemoryRegionList() []MemoryRegionNameType {
	return []MemoryRegionNameType{
		MemoryRegionROM,
		MemoryRegionRAM,
		MemoryRegionNVM,
		MemoryRegionNVMConfig,
		MemoryRegionNVMPatch,
	}
}

func (h *HAL) MemoryRegionGet(name MemoryRegionNameType) MemoryRegion {
	t := MemoryRegionNameType(strings.ToUpper(string(name)))

	switch t {
	case MemoryRegionROM:
		return regionWrapCompleteIO(backDoorRegion{hal: h, base: ROMBase, length: ROMSize, name: t})
	case MemoryRegionRAM:
		return regionWrapCompleteIO(backDoorRegion{hal: h, base: RAMBase, length: RAMSize, name: t})
	case MemoryRegionNVM:
		return regionWrapCompleteIO(nvmRegion{hal: h})
	case MemoryRegionNVMConfig:
		return regionWrapPartial(t, h.MemoryRegionGet(MemoryRegionNVM), NVMConfigOffset, NVMConfigSize)
	case MemoryRegionNVMPatch:
		return regionWrapPartial(t, h.MemoryRegionGet(MemoryRegionNVM), NVMPatchOffset, NVMPatchWindowSize)
	}

	return nil
}
