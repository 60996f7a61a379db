package mechacrypto

import (
	"encoding/binary"
	"hash"
	"math/bits"
)

const (
	SHA256Size      = 32
	SHA256BlockSize = 64
)

var sha256K = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

var sha256Init = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a, 0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

func rotr(x uint32, n int) uint32 {
	return bits.RotateLeft32(x, -n)
}

func sha256Transform(state *[8]uint32, input *[16]uint32) {
	var w [64]uint32
	copy(w[:], input[:])

	for i := 16; i < 64; i++ {
		s0 := rotr(w[i-15], 7) ^ rotr(w[i-15], 18) ^ (w[i-15] >> 3)
		s1 := rotr(w[i-2], 17) ^ rotr(w[i-2], 19) ^ (w[i-2] >> 10)
		w[i] = s1 + w[i-7] + s0 + w[i-16]
	}

	a, b, c, d := state[0], state[1], state[2], state[3]
	e, f, g, h := state[4], state[5], state[6], state[7]

	for i := 0; i < 64; i++ {
		t1 := h + (rotr(e, 6) ^ rotr(e, 11) ^ rotr(e, 25)) + ((e & f) ^ (^e & g)) + sha256K[i] + w[i]
		t2 := (rotr(a, 2) ^ rotr(a, 13) ^ rotr(a, 22)) + ((a & b) ^ (a & c) ^ (b & c))

		h = g
		g = f
		f = e
		e = d + t1
		d = c
		c = b
		b = a
		a = t1 + t2
	}

	state[0] += a
	state[1] += b
	state[2] += c
	state[3] += d
	state[4] += e
	state[5] += f
	state[6] += g
	state[7] += h
}

func sha256Digest(state *[8]uint32) [SHA256Size]byte {
	var d [SHA256Size]byte
	for i, m := range state {
		binary.BigEndian.PutUint32(d[i*4:], m)
	}
	return d
}

// SHA256 is a streaming SHA-256 engine. Finish consumes the state, call
// Reset before reusing it.
type SHA256 struct {
	state [8]uint32
	buf   [SHA256BlockSize]byte
	size  uint64
}

var _ hash.Hash = (*SHA256)(nil)

func NewSHA256() *SHA256 {
	s := &SHA256{}
	s.Reset()
	return s
}

func (s *SHA256) Reset() {
	s.state = sha256Init
	s.buf = [SHA256BlockSize]byte{}
	s.size = 0
}

func (s *SHA256) block(p []byte) {
	var w [16]uint32
	for i := range w {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	sha256Transform(&s.state, &w)
}

func (s *SHA256) Write(p []byte) (int, error) {
	n := len(p)

	/* Top up a partially filled block first */
	if fill := int(s.size % SHA256BlockSize); fill > 0 {
		c := copy(s.buf[fill:], p)
		s.size += uint64(c)
		p = p[c:]
		if fill+c == SHA256BlockSize {
			s.block(s.buf[:])
		}
	}

	for len(p) >= SHA256BlockSize {
		s.block(p[:SHA256BlockSize])
		s.size += SHA256BlockSize
		p = p[SHA256BlockSize:]
	}

	if len(p) > 0 {
		copy(s.buf[:], p)
		s.size += uint64(len(p))
	}

	return n, nil
}

func (s *SHA256) Finish() [SHA256Size]byte {
	bitLen := s.size * 8

	s.Write([]byte{0x80})

	var zero [SHA256BlockSize]byte
	pad := (SHA256BlockSize - 8 - int(s.size%SHA256BlockSize) + SHA256BlockSize) % SHA256BlockSize
	s.Write(zero[:pad])

	var length [8]byte
	binary.BigEndian.PutUint64(length[:], bitLen)
	s.Write(length[:])

	return sha256Digest(&s.state)
}

// Sum appends the digest of the data written so far without disturbing the
// running state.
func (s *SHA256) Sum(b []byte) []byte {
	tmp := *s
	d := tmp.Finish()
	return append(b, d[:]...)
}

func (s *SHA256) Size() int {
	return SHA256Size
}

func (s *SHA256) BlockSize() int {
	return SHA256BlockSize
}

func SHA256Sum(data []byte) [SHA256Size]byte {
	s := NewSHA256()
	s.Write(data)
	return s.Finish()
}

// SumUint64 hashes the big-endian encoding of v. The message always fits in
// one padded block, so it is built directly instead of going through Write.
func SumUint64(v uint64) [SHA256Size]byte {
	state := sha256Init
	input := [16]uint32{
		uint32(v >> 32),
		uint32(v),
		0x80000000,
		15: 64,
	}
	sha256Transform(&state, &input)
	return sha256Digest(&state)
}
