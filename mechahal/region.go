package mechahal

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

type MemoryRegion interface {
	GetLength() int
	Access(write bool, addr int, buf []byte) (int, error)
	GetParent() (MemoryRegion, int)
	GetName() MemoryRegionNameType
	GetAlignment() int
}

type regionCompleteIO struct {
	MemoryRegion
}

func regionWrapCompleteIO(parent MemoryRegion) MemoryRegion {
	return regionCompleteIO{
		MemoryRegion: parent,
	}
}

func (m regionCompleteIO) Access(write bool, addr int, buf []byte) (int, error) {
	align := m.GetAlignment()
	if addr&(align-1) != 0 {
		return 0, errors.Wrapf(ErrorMisaligned, "address %x in %s", addr, m.GetName())
	} else if write && len(buf)%align != 0 {
		return 0, errors.Wrapf(ErrorMisaligned, "%d bytes to %s", len(buf), m.GetName())
	}

	total := 0
	for len(buf) > 0 {
		n, err := m.MemoryRegion.Access(write, addr+total, buf)
		total += n
		buf = buf[n:]

		if err != nil || n == 0 {
			return total, err
		}
	}

	return total, nil
}

func ReadByte(m MemoryRegion, addr int) (byte, error) {
	var buf [1]byte
	_, err := m.Access(false, addr, buf[:])
	return buf[0], err
}

func ReadUint32(m MemoryRegion, addr int) (uint32, error) {
	var buf [4]byte
	n, err := m.Access(false, addr, buf[:])
	if err == nil && n < len(buf) {
		err = ErrorShortReply
	}
	return binary.LittleEndian.Uint32(buf[:]), err
}

type regionPartial struct {
	parent MemoryRegion
	offset int
	length int
	name   MemoryRegionNameType
}

func regionWrapPartial(name MemoryRegionNameType, parent MemoryRegion, offset int, length int) MemoryRegion {
	return regionPartial{
		parent: parent,
		offset: offset,
		length: length,
		name:   name,
	}
}

func (h regionPartial) GetName() MemoryRegionNameType {
	return h.name
}

func (h regionPartial) GetLength() int {
	return h.length
}

func (h regionPartial) GetParent() (MemoryRegion, int) {
	return h.parent, h.offset
}

func (h regionPartial) GetAlignment() int {
	return h.parent.GetAlignment()
}

func (h regionPartial) Access(write bool, addr int, buf []byte) (int, error) {
	if len(buf)+addr > h.length {
		if addr > h.length {
			return 0, nil
		}
		buf = buf[:h.length-addr]
	}

	return h.parent.Access(write, h.offset+addr, buf)
}

// RecursiveGetParentAddress walks up to the root region and returns the
// offset translated into it.
func RecursiveGetParentAddress(region MemoryRegion, offset int) (MemoryRegion, int) {
	for {
		var parentOffset int
		prevRegion := region
		region, parentOffset = region.GetParent()

		offset += parentOffset

		if region == nil {
			return prevRegion, offset
		}
	}
}
