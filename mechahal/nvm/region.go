// Package nvm decodes the controller's 0x400 byte NVM image: the encrypted
// region record and the patch window.
package nvm

import (
	"encoding/binary"
	"strings"

	"github.com/BertoldVdb/mecha-tools/mechacrypto"
	"github.com/pkg/errors"
)

const (
	ImageSize = 0x400

	regionSeedOffset   = 0x1C6
	regionRecordOffset = 0x1D0
	regionBlockSize    = 0x0A
)

// Codec holds the two secret keys the NVM contents are protected with.
type Codec struct {
	PatchKey mechacrypto.Key
	FlagsKey mechacrypto.Key

	/* Leave byte 8 of each region block out of its checksum, like the
	 * mechadump tool does */
	LegacyBlockChecksum bool
}

func NewCodec(keys mechacrypto.Keys) Codec {
	return Codec{
		PatchKey: keys.MechaPatch,
		FlagsKey: keys.GlobalFlags,
	}
}

// blockChecksum is the complemented byte sum of everything but the last
// byte of block.
func (c Codec) blockChecksum(block []byte) byte {
	covered := block[:len(block)-1]
	if c.LegacyBlockChecksum {
		covered = block[:len(block)-2]
	}

	var sum byte
	for _, m := range covered {
		sum += m
	}
	return ^sum
}

func (c Codec) checkBlock(image []byte, offset int) error {
	block := image[offset : offset+regionBlockSize]
	if want := c.blockChecksum(block); block[regionBlockSize-1] != want {
		return errors.Wrapf(ErrorRegionUnknown, "block at %03x: checksum %02x, expected %02x", offset, block[regionBlockSize-1], want)
	}
	return nil
}

func regionChecksum(flags uint32, nonce uint16) uint16 {
	return uint16(uint32(nonce) + flags&0xFFFF + flags>>16)
}

func (c Codec) regionKey(seed []byte) (mechacrypto.Key, error) {
	var key mechacrypto.Key
	err := mechacrypto.CBCEncrypt(key[:], seed[:mechacrypto.BlockSize], []mechacrypto.Key{c.FlagsKey}, mechacrypto.ZeroIV)
	return key, err
}

// DecodeRegionFlags returns the region bitmask stored in an NVM image.
// Any failure means the region is unknown, never that the image is unusable.
func (c Codec) DecodeRegionFlags(image []byte) (uint32, error) {
	if len(image) < ImageSize {
		return 0, errors.Wrapf(ErrorImageSize, "%d bytes", len(image))
	}

	if err := c.checkBlock(image, regionSeedOffset); err != nil {
		return 0, err
	}
	if err := c.checkBlock(image, regionRecordOffset); err != nil {
		return 0, err
	}

	key, err := c.regionKey(image[regionSeedOffset:])
	if err != nil {
		return 0, err
	}

	var record [mechacrypto.BlockSize]byte
	if err := mechacrypto.CBCDecrypt(record[:], image[regionRecordOffset:regionRecordOffset+mechacrypto.BlockSize], []mechacrypto.Key{key}, mechacrypto.ZeroIV); err != nil {
		return 0, err
	}

	flags := binary.LittleEndian.Uint32(record[0:])
	nonce := binary.LittleEndian.Uint16(record[4:])
	sum := binary.LittleEndian.Uint16(record[6:])

	if want := regionChecksum(flags, nonce); sum != want {
		return 0, errors.Wrapf(ErrorRegionUnknown, "record checksum %04x, expected %04x", sum, want)
	}

	return flags, nil
}

// EncodeRegionFlags writes a region record for flags into image, using seed
// to derive the record key.
func (c Codec) EncodeRegionFlags(image []byte, flags uint32, nonce uint16, seed [mechacrypto.BlockSize]byte) error {
	if len(image) < ImageSize {
		return errors.Wrapf(ErrorImageSize, "%d bytes", len(image))
	}

	seedBlock := image[regionSeedOffset : regionSeedOffset+regionBlockSize]
	copy(seedBlock, seed[:])
	seedBlock[regionBlockSize-1] = c.blockChecksum(seedBlock)

	key, err := c.regionKey(seedBlock)
	if err != nil {
		return err
	}

	var record [mechacrypto.BlockSize]byte
	binary.LittleEndian.PutUint32(record[0:], flags)
	binary.LittleEndian.PutUint16(record[4:], nonce)
	binary.LittleEndian.PutUint16(record[6:], regionChecksum(flags, nonce))

	recordBlock := image[regionRecordOffset : regionRecordOffset+regionBlockSize]
	if err := mechacrypto.CBCEncrypt(recordBlock, record[:], []mechacrypto.Key{key}, mechacrypto.ZeroIV); err != nil {
		return err
	}
	recordBlock[regionBlockSize-1] = c.blockChecksum(recordBlock)

	return nil
}

var regionBits = []struct {
	bit  uint
	name string
}{
	{20, "Internal"},
	{19, "Prototype"},
	{18, "Arcade"},
	{17, "QA"},
	{16, "DEX"},
	{7, "LatinAmerica"},
	{6, "China"},
	{5, "Russia"},
	{4, "Asia"},
	{3, "AustraliaNZ"},
	{2, "Europe"},
	{1, "NorthAmerica"},
	{0, "Japan"},
}

func RegionFlagsString(flags uint32) string {
	var names []string
	for _, b := range regionBits {
		if flags&(1<<b.bit) != 0 {
			names = append(names, b.name)
		}
	}
	return strings.Join(names, " ")
}

// RegionSeed returns the seed the region record key of image is derived from.
func RegionSeed(image []byte) ([mechacrypto.BlockSize]byte, error) {
	var seed [mechacrypto.BlockSize]byte
	if len(image) < ImageSize {
		return seed, errors.Wrapf(ErrorImageSize, "%d bytes", len(image))
	}
	copy(seed[:], image[regionSeedOffset:])
	return seed, nil
}
