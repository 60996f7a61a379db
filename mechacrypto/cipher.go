package mechacrypto

import (
	"crypto/cipher"
	"crypto/des"
)

const BlockSize = des.BlockSize

type Key [BlockSize]byte

var ZeroIV [BlockSize]byte

func newBlock(key Key) cipher.Block {
	/* Only fails on a bad key length, which the type rules out */
	b, err := des.NewCipher(key[:])
	if err != nil {
		panic(err)
	}
	return b
}

func cbcCheck(dst, src []byte, keys []Key) error {
	if len(src)%BlockSize != 0 {
		return ErrorBlockSize
	}
	if len(keys) == 0 {
		return ErrorNoKeys
	}
	if len(dst) < len(src) {
		return ErrorShortBuffer
	}
	return nil
}

// CBCEncrypt runs one CBC pass per key, in order. dst and src may be the
// same buffer.
func CBCEncrypt(dst, src []byte, keys []Key, iv [BlockSize]byte) error {
	if err := cbcCheck(dst, src, keys); err != nil {
		return err
	}

	out := dst[:len(src)]
	copy(out, src)
	for _, k := range keys {
		cipher.NewCBCEncrypter(newBlock(k), iv[:]).CryptBlocks(out, out)
	}
	return nil
}

// CBCDecrypt undoes CBCEncrypt: the passes run in reverse key order.
func CBCDecrypt(dst, src []byte, keys []Key, iv [BlockSize]byte) error {
	if err := cbcCheck(dst, src, keys); err != nil {
		return err
	}

	out := dst[:len(src)]
	copy(out, src)
	for i := len(keys) - 1; i >= 0; i-- {
		cipher.NewCBCDecrypter(newBlock(keys[i]), iv[:]).CryptBlocks(out, out)
	}
	return nil
}

// EncryptBlock and DecryptBlock are single-key, zero-IV, single-block CBC,
// which is ECB.
func EncryptBlock(key Key, in [BlockSize]byte) [BlockSize]byte {
	var out [BlockSize]byte
	CBCEncrypt(out[:], in[:], []Key{key}, ZeroIV)
	return out
}

func DecryptBlock(key Key, in [BlockSize]byte) [BlockSize]byte {
	var out [BlockSize]byte
	CBCDecrypt(out[:], in[:], []Key{key}, ZeroIV)
	return out
}
