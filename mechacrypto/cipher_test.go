package mechacrypto

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testKeys = []Key{
	{0x13, 0x34, 0x57, 0x79, 0x9B, 0xBC, 0xDF, 0xF1},
	{0x0E, 0x32, 0x92, 0x32, 0xEA, 0x6D, 0x0D, 0x73},
	{0xA4, 0x4D, 0x43, 0x44, 0x00, 0x11, 0x22, 0x33},
}

func TestCBCRoundTrip(t *testing.T) {
	iv := [BlockSize]byte{1, 2, 3, 4, 5, 6, 7, 8}
	plain := []byte("0123456789abcdefFEDCBA9876543210")

	for n := 1; n <= len(testKeys); n++ {
		enc := make([]byte, len(plain))
		if err := CBCEncrypt(enc, plain, testKeys[:n], iv); err != nil {
			t.Fatalf("%d keys: encrypt: %v", n, err)
		}
		if bytes.Equal(enc, plain) {
			t.Fatalf("%d keys: ciphertext equals plaintext", n)
		}

		dec := make([]byte, len(enc))
		if err := CBCDecrypt(dec, enc, testKeys[:n], iv); err != nil {
			t.Fatalf("%d keys: decrypt: %v", n, err)
		}
		if diff := cmp.Diff(plain, dec); diff != "" {
			t.Errorf("%d keys: round trip mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestCBCInPlace(t *testing.T) {
	buf := []byte("sixteen bytes!!!")
	orig := append([]byte(nil), buf...)

	if err := CBCEncrypt(buf, buf, testKeys, ZeroIV); err != nil {
		t.Fatal(err)
	}
	if err := CBCDecrypt(buf, buf, testKeys, ZeroIV); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, orig) {
		t.Fatalf("in-place round trip: got %q", buf)
	}
}

func TestCBCSingleKeyMatchesStdlib(t *testing.T) {
	iv := [BlockSize]byte{9, 8, 7, 6, 5, 4, 3, 2}
	plain := bytes.Repeat([]byte{0x5a}, 24)

	got := make([]byte, len(plain))
	if err := CBCEncrypt(got, plain, testKeys[:1], iv); err != nil {
		t.Fatal(err)
	}

	block, _ := des.NewCipher(testKeys[0][:])
	want := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(want, plain)

	if !bytes.Equal(got, want) {
		t.Fatalf("single key CBC: got %x, want %x", got, want)
	}
}

func TestBlockKnownVector(t *testing.T) {
	/* FIPS 81 / classic DES test vector */
	key := Key{0x13, 0x34, 0x57, 0x79, 0x9B, 0xBC, 0xDF, 0xF1}
	in := [BlockSize]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	want := [BlockSize]byte{0x85, 0xE8, 0x13, 0x54, 0x0F, 0x0A, 0xB4, 0x05}

	if got := EncryptBlock(key, in); got != want {
		t.Fatalf("EncryptBlock = %x, want %x", got, want)
	}
	if got := DecryptBlock(key, want); got != in {
		t.Fatalf("DecryptBlock = %x, want %x", got, in)
	}
}

func TestCBCErrors(t *testing.T) {
	buf := make([]byte, 16)

	if err := CBCEncrypt(buf, buf[:7], testKeys, ZeroIV); !errors.Is(err, ErrorBlockSize) {
		t.Errorf("odd length: got %v", err)
	}
	if err := CBCDecrypt(buf, buf, nil, ZeroIV); !errors.Is(err, ErrorNoKeys) {
		t.Errorf("no keys: got %v", err)
	}
	if err := CBCEncrypt(buf[:8], buf, testKeys, ZeroIV); !errors.Is(err, ErrorShortBuffer) {
		t.Errorf("short dst: got %v", err)
	}
}
