package mechahal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	opReadNVM byte = 0x0A
	opModel   byte = 0x17

	versionSubVersion = 0x00
	versionSubDate    = 0xFD

	/* Dragon controllers, the only ones with the back door */
	minCompatibleMajor = 5
)

type Version struct {
	Major int
	Minor int
	DEX   bool
	Date  string
}

func (v Version) String() string {
	kind := "CEX"
	if v.DEX {
		kind = "DEX"
	}
	return fmt.Sprintf("%d.%02d %s (%s)", v.Major, v.Minor, kind, v.Date)
}

func (v Version) Compatible() bool {
	return v.Major >= minCompatibleMajor
}

// DumpFilename returns the name a ROM dump of this controller is saved
// under.
func (v Version) DumpFilename() string {
	date := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == ' ':
			return '-'
		}
		return '_'
	}, v.Date)

	return fmt.Sprintf("mechacon-%d.%02d-%s.bin", v.Major, v.Minor, date)
}

func (h *HAL) GetVersion() (Version, error) {
	var v Version

	version, err := h.scmd(opBackDoor, []byte{versionSubVersion}, 3)
	if err != nil {
		return v, err
	}

	date, err := h.scmdStatus(opBackDoor, []byte{versionSubDate}, 6, 0)
	if err != nil {
		return v, err
	}

	v.Major = int(version[1])
	v.Minor = int(version[2]) &^ 1
	v.DEX = version[2]&1 != 0
	v.Date = fmt.Sprintf("20%02x/%02x/%02x %02x:%02x", date[1], date[2], date[3], date[4], date[5])

	return v, nil
}

func (h *HAL) GetModelString() (string, error) {
	var model [16]byte

	for i, sub := range []byte{0, 8} {
		reply, err := h.scmdStatus(opModel, []byte{sub}, 9, 0)
		if err != nil {
			return "", errors.Wrap(err, "model string")
		}
		copy(model[i*8:], reply[1:])
	}

	if n := bytes.IndexByte(model[:], 0); n >= 0 {
		return string(model[:n]), nil
	}
	return string(model[:]), nil
}

func (h *HAL) readNVMWord(wordOffset uint16) (uint16, error) {
	var req [2]byte
	binary.BigEndian.PutUint16(req[:], wordOffset)

	reply, err := h.scmdStatus(opReadNVM, req[:], 3, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "NVM word %04x", wordOffset)
	}
	return binary.BigEndian.Uint16(reply[1:]), nil
}

// ReadNVM fills buf from the NVM image starting at byte offset.
func (h *HAL) ReadNVM(offset int, buf []byte) error {
	_, err := h.MemoryRegionGet(MemoryRegionNVM).Access(false, offset, buf)
	return err
}
