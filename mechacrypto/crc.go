package mechacrypto

import "hash/crc32"

// CRC32 is only used to show a short fingerprint of the NVM patch window.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
