package mechacrypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"math/rand"
	"testing"
)

func TestSHA256Vectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq",
			"248d6a61d20638b8e5c026930c3e6039a33ce45964ff2167f6ecedd419db06c1"},
	}

	for _, tt := range tests {
		s := NewSHA256()
		s.Write([]byte(tt.in))
		d := s.Finish()
		if got := hex.EncodeToString(d[:]); got != tt.want {
			t.Errorf("SHA256(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSHA256ChunkSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 1000)
	rng.Read(data)

	for _, n := range []int{0, 1, 55, 56, 63, 64, 65, 128, 999, 1000} {
		want := sha256.Sum256(data[:n])

		/* One byte at a time */
		s := NewSHA256()
		for i := 0; i < n; i++ {
			s.Write(data[i : i+1])
		}
		if got := s.Finish(); got != want {
			t.Errorf("len %d byte-wise: got %x, want %x", n, got, want)
		}

		/* Random chunks */
		s.Reset()
		rest := data[:n]
		for len(rest) > 0 {
			c := 1 + rng.Intn(100)
			if c > len(rest) {
				c = len(rest)
			}
			s.Write(rest[:c])
			rest = rest[c:]
		}
		if got := s.Finish(); got != want {
			t.Errorf("len %d chunked: got %x, want %x", n, got, want)
		}
	}
}

func TestSHA256SumKeepsState(t *testing.T) {
	s := NewSHA256()
	io.WriteString(s, "ab")
	first := s.Sum(nil)
	io.WriteString(s, "c")

	want := sha256.Sum256([]byte("ab"))
	if hex.EncodeToString(first) != hex.EncodeToString(want[:]) {
		t.Fatalf("Sum mid-stream: got %x, want %x", first, want)
	}
	if got := s.Finish(); got != sha256.Sum256([]byte("abc")) {
		t.Fatalf("Sum disturbed the running state: %x", got)
	}
}

func TestSumUint64(t *testing.T) {
	for _, v := range []uint64{0, 1, 0x0123456789abcdef, ^uint64(0)} {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v)
		if got, want := SumUint64(v), sha256.Sum256(buf[:]); got != want {
			t.Errorf("SumUint64(%x) = %x, want %x", v, got, want)
		}
	}
}
