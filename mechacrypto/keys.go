package mechacrypto

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// These can be burned in at build time:
//
//	go build -ldflags "-X github.com/BertoldVdb/mecha-tools/mechacrypto.MechaPatchKeyHex=..."
var (
	MechaPatchKeyHex  string
	GlobalFlagsKeyHex string
)

const desParityMask = 0x0101010101010101

type KeyName string

const (
	KeyMechaPatch  KeyName = "mecha_patch"
	KeyGlobalFlags KeyName = "global_flags"
)

/* The keys themselves are not distributed, only the SHA-256 of their big-endian
 * form (with DES parity bits cleared) */
var keyDigests = map[KeyName][8]uint32{
	KeyMechaPatch: {
		0x2B69BA04, 0x87A716C4, 0xFF66452A, 0x816910B7,
		0xB6CD2541, 0x898A24C5, 0x9CADB82D, 0xF306EF29,
	},
	KeyGlobalFlags: {
		0x720CB04F, 0x58712834, 0x9053B65E, 0xEDAB6607,
		0x85F5989D, 0x7788F311, 0xE799B490, 0x3053EABA,
	},
}

type Keys struct {
	MechaPatch  Key
	GlobalFlags Key
}

func parseKeyValue(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, "'", "")

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return v &^ desParityMask, nil
}

// ParseKey decodes a hex key and checks it against the known digest.
func ParseKey(name KeyName, s string) (Key, error) {
	var key Key

	if s == "" {
		return key, errors.Wrapf(ErrorKeyMissing, "key %s", name)
	}

	v, err := parseKeyValue(s)
	if err != nil {
		return key, errors.Wrapf(err, "key %s", name)
	}

	expected, ok := keyDigests[name]
	if !ok {
		return key, errors.Errorf("unknown key %s", name)
	}
	if SumUint64(v) != sha256Digest(&expected) {
		return key, errors.Wrapf(ErrorKeyMismatch, "key %s", name)
	}

	binary.BigEndian.PutUint64(key[:], v)
	return key, nil
}

// LoadKeys parses both keys, falling back to the build-time values for
// empty arguments.
func LoadKeys(mechaPatch, globalFlags string) (Keys, error) {
	var keys Keys
	var err error

	if mechaPatch == "" {
		mechaPatch = MechaPatchKeyHex
	}
	if globalFlags == "" {
		globalFlags = GlobalFlagsKeyHex
	}

	if keys.MechaPatch, err = ParseKey(KeyMechaPatch, mechaPatch); err != nil {
		return keys, err
	}
	if keys.GlobalFlags, err = ParseKey(KeyGlobalFlags, globalFlags); err != nil {
		return keys, err
	}
	return keys, nil
}
