package nvm

import (
	"errors"
	"testing"

	"github.com/BertoldVdb/mecha-tools/mechacrypto"
)

var testCodec = Codec{
	PatchKey: mechacrypto.Key{0x3A, 0x10, 0x7C, 0x22, 0x5E, 0x98, 0x04, 0xB6},
	FlagsKey: mechacrypto.Key{0x62, 0x1E, 0xD4, 0x08, 0xA0, 0x46, 0x3C, 0x7A},
}

func testImage(t *testing.T, flags uint32) []byte {
	image := make([]byte, ImageSize)
	for i := range image {
		image[i] = byte(i * 13)
	}

	seed := [8]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	if err := testCodec.EncodeRegionFlags(image, flags, 0xBEEF, seed); err != nil {
		t.Fatal(err)
	}
	return image
}

func TestRegionRoundTrip(t *testing.T) {
	for _, flags := range []uint32{0, 1 << 1, 1<<2 | 1<<16, 0x001F00FF, 0xFFFFFFFF} {
		got, err := testCodec.DecodeRegionFlags(testImage(t, flags))
		if err != nil {
			t.Fatalf("%08x: %v", flags, err)
		}
		if got != flags {
			t.Errorf("got %08x, want %08x", got, flags)
		}
	}
}

func TestRegionCorruption(t *testing.T) {
	clean := testImage(t, 1<<2)

	for _, block := range []int{regionSeedOffset, regionRecordOffset} {
		for i := 0; i < regionBlockSize; i++ {
			image := append([]byte(nil), clean...)
			image[block+i] ^= 0x01

			if _, err := testCodec.DecodeRegionFlags(image); !errors.Is(err, ErrorRegionUnknown) {
				t.Errorf("flip at %03x: got %v", block+i, err)
			}
		}
	}
}

func TestRegionRecordChecksum(t *testing.T) {
	image := testImage(t, 1<<2)

	/* A record that passes the block checksum but decrypts to garbage */
	image[regionRecordOffset] ^= 0x80
	image[regionRecordOffset+regionBlockSize-1] = testCodec.blockChecksum(image[regionRecordOffset : regionRecordOffset+regionBlockSize])

	_, err := testCodec.DecodeRegionFlags(image)
	if !errors.Is(err, ErrorRegionUnknown) {
		t.Fatalf("got %v", err)
	}
}

func TestRegionWrongKey(t *testing.T) {
	image := testImage(t, 1<<1)

	other := testCodec
	other.FlagsKey[0] ^= 0x02
	if _, err := other.DecodeRegionFlags(image); !errors.Is(err, ErrorRegionUnknown) {
		t.Fatalf("got %v", err)
	}
}

func TestRegionShortImage(t *testing.T) {
	if _, err := testCodec.DecodeRegionFlags(make([]byte, 0x200)); !errors.Is(err, ErrorImageSize) {
		t.Fatalf("got %v", err)
	}
}

func TestRegionFlagsString(t *testing.T) {
	tests := []struct {
		flags uint32
		want  string
	}{
		{0, ""},
		{1 << 0, "Japan"},
		{1<<16 | 1<<2, "DEX Europe"},
		{1<<20 | 1<<7 | 1<<1, "Internal LatinAmerica NorthAmerica"},
	}

	for _, tt := range tests {
		if got := RegionFlagsString(tt.flags); got != tt.want {
			t.Errorf("%08x: got %q, want %q", tt.flags, got, tt.want)
		}
	}
}

func TestRegionSeed(t *testing.T) {
	image := testImage(t, 0x4)

	seed, err := RegionSeed(image)
	if err != nil {
		t.Fatal(err)
	}
	if seed != [8]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88} {
		t.Errorf("seed %x", seed)
	}

	/* Re-encoding with the old seed keeps the key */
	if err := testCodec.EncodeRegionFlags(image, 0x8, 1, seed); err != nil {
		t.Fatal(err)
	}
	if got, err := testCodec.DecodeRegionFlags(image); err != nil || got != 0x8 {
		t.Errorf("got %08x, %v", got, err)
	}

	if _, err := RegionSeed(image[:0x100]); !errors.Is(err, ErrorImageSize) {
		t.Errorf("short image: %v", err)
	}
}

func TestRegionLegacyBlockChecksum(t *testing.T) {
	legacy := testCodec
	legacy.LegacyBlockChecksum = true

	image := make([]byte, ImageSize)
	seed := [8]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	if err := legacy.EncodeRegionFlags(image, 1<<2, 0x1234, seed); err != nil {
		t.Fatal(err)
	}

	/* Byte 8 is not covered, the rest still is */
	image[regionSeedOffset+regionBlockSize-2] ^= 0x01
	image[regionRecordOffset+regionBlockSize-2] ^= 0x01
	if got, err := legacy.DecodeRegionFlags(image); err != nil || got != 1<<2 {
		t.Fatalf("got %08x, %v", got, err)
	}

	image[regionSeedOffset] ^= 0x01
	if _, err := legacy.DecodeRegionFlags(image); !errors.Is(err, ErrorRegionUnknown) {
		t.Errorf("seed corruption: %v", err)
	}

	/* The default coverage rejects the byte 8 change */
	image[regionSeedOffset] ^= 0x01
	if _, err := testCodec.DecodeRegionFlags(image); !errors.Is(err, ErrorRegionUnknown) {
		t.Errorf("default checksum accepted legacy image: %v", err)
	}
}
