package nvm

import (
	"encoding/binary"

	"github.com/BertoldVdb/mecha-tools/mechacrypto"
	"github.com/pkg/errors"
)

const (
	PatchOffset     = 0x320
	PatchWindowSize = 0xE0
	/* Decrypted payload that fits in the two halves */
	PatchPlainSize = 0xD8

	patchHalfSize   = 0x70
	patchHalfData   = 0x6E
	patchSecondData = PatchPlainSize - patchHalfData
	patchAddrSum    = 0xDA
	patchRowSize    = 0x10
	patchRows       = PatchWindowSize / patchRowSize
)

// MakeEmptyPatchReference returns the patch window of a controller without
// patches: two encrypted zero blocks followed by erased bytes.
func (c Codec) MakeEmptyPatchReference() []byte {
	zero := mechacrypto.EncryptBlock(c.PatchKey, [mechacrypto.BlockSize]byte{})

	ref := make([]byte, PatchWindowSize)
	copy(ref[0:], zero[:])
	copy(ref[8:], zero[:])
	for i := 16; i < len(ref); i++ {
		ref[i] = 0xFF
	}
	return ref
}

// ExtractPatchWindow accepts either a full NVM image or a bare patch window.
func ExtractPatchWindow(data []byte) ([]byte, error) {
	switch len(data) {
	case PatchWindowSize:
		return data, nil
	case ImageSize:
		return data[PatchOffset:], nil
	}
	return nil, errors.Wrapf(ErrorPatchSize, "%d bytes", len(data))
}

type PatchReport struct {
	HasData               bool
	WriteConfigCompatible bool
	BlockChecksumsOK      bool
	AddressChecksumOK     bool
}

func (r PatchReport) Valid() bool {
	return r.BlockChecksumsOK && r.AddressChecksumOK
}

/* Rows written through the configuration command carry a byte sum in their
 * last byte */
func rowCompatible(row []byte) bool {
	var sum byte
	for _, m := range row[:patchRowSize-1] {
		sum += m
	}
	return row[patchRowSize-1] == sum
}

func halfChecksum(half []byte) byte {
	var sum byte
	for _, m := range half[:patchHalfData] {
		sum += m
	}
	return ^sum
}

func addressSum(plain []byte) uint32 {
	var sum uint32
	for i := 0; i < 16; i += 4 {
		sum += binary.LittleEndian.Uint32(plain[i:])
	}
	return ^sum
}

func (c Codec) decryptBlocks(buf []byte) {
	for i := 0; i+mechacrypto.BlockSize <= len(buf); i += mechacrypto.BlockSize {
		var in [mechacrypto.BlockSize]byte
		copy(in[:], buf[i:])
		out := mechacrypto.DecryptBlock(c.PatchKey, in)
		copy(buf[i:], out[:])
	}
}

func (c Codec) encryptBlocks(buf []byte) {
	for i := 0; i+mechacrypto.BlockSize <= len(buf); i += mechacrypto.BlockSize {
		var in [mechacrypto.BlockSize]byte
		copy(in[:], buf[i:])
		out := mechacrypto.EncryptBlock(c.PatchKey, in)
		copy(buf[i:], out[:])
	}
}

func (c Codec) VerifyPatch(window []byte) (PatchReport, error) {
	var r PatchReport

	window, err := ExtractPatchWindow(window)
	if err != nil {
		return r, err
	}

	r.WriteConfigCompatible = true
	for row := 0; row < patchRows; row++ {
		if !rowCompatible(window[row*patchRowSize:]) {
			r.WriteConfigCompatible = false
			break
		}
	}

	header := make([]byte, 16)
	copy(header, window)
	c.decryptBlocks(header)
	for _, m := range header {
		if m != 0 {
			r.HasData = true
			break
		}
	}

	r.BlockChecksumsOK = true
	for half := 0; half < 2; half++ {
		h := window[half*patchHalfSize:]
		if h[patchHalfSize-1] != halfChecksum(h) {
			r.BlockChecksumsOK = false
		}
	}

	r.AddressChecksumOK = binary.LittleEndian.Uint32(window[patchAddrSum:]) == addressSum(header)

	return r, nil
}

// DecryptPatch joins the two halves of a patch window and decrypts them.
func (c Codec) DecryptPatch(window []byte) ([]byte, error) {
	window, err := ExtractPatchWindow(window)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, PatchPlainSize)
	copy(plain, window[:patchHalfData])
	copy(plain[patchHalfData:], window[patchHalfSize:patchHalfSize+patchSecondData])

	c.decryptBlocks(plain)
	return plain, nil
}

// EncryptPatch is the inverse of DecryptPatch. With fixupRows the unused byte
// of each half is chosen so the last row of the half passes the
// configuration write checksum.
func (c Codec) EncryptPatch(plain []byte, fixupRows bool) ([]byte, error) {
	if len(plain) > PatchPlainSize {
		return nil, errors.Wrapf(ErrorPatchSize, "%d bytes of patch data", len(plain))
	}

	window := make([]byte, PatchWindowSize)
	copy(window, plain)
	sum := addressSum(window)

	c.encryptBlocks(window[:PatchPlainSize])

	/* Split into two halves, the address checksum lands after the second */
	copy(window[patchHalfSize:], window[patchHalfData:patchHalfData*2])
	binary.LittleEndian.PutUint32(window[patchAddrSum:], sum)

	for half := 0; half < 2; half++ {
		h := window[half*patchHalfSize : (half+1)*patchHalfSize]
		h[patchHalfSize-1] = halfChecksum(h)

		h[patchHalfData] = 0
		if fixupRows {
			var rowSum byte
			for _, m := range h[patchHalfData-(patchRowSize-2) : patchHalfData] {
				rowSum += m
			}
			h[patchHalfData] = h[patchHalfSize-1] - rowSum
		}
	}

	return window, nil
}
