package mechahal

import (
	"bytes"
	"testing"
)

type mockExchange struct {
	opcode  byte
	request []byte
	reply   []byte
	err     error
}

/* Replays a fixed script of exchanges and fails the test on any deviation */
type mockTransport struct {
	t      *testing.T
	script []mockExchange
}

func (m *mockTransport) SCmd(opcode byte, request []byte, replyLen int) ([]byte, error) {
	m.t.Helper()

	if len(m.script) == 0 {
		m.t.Fatalf("unexpected command %02x %x", opcode, request)
	}
	e := m.script[0]
	m.script = m.script[1:]

	if opcode != e.opcode {
		m.t.Fatalf("opcode %02x, want %02x", opcode, e.opcode)
	}
	if e.request != nil && !bytes.Equal(request, e.request) {
		m.t.Fatalf("request %x, want %x", request, e.request)
	}
	if e.err != nil {
		return nil, e.err
	}

	reply := make([]byte, replyLen)
	copy(reply, e.reply)
	return reply, nil
}

func (m *mockTransport) done() {
	m.t.Helper()
	if len(m.script) != 0 {
		m.t.Fatalf("%d exchanges not consumed", len(m.script))
	}
}

func newMockHAL(t *testing.T, script ...mockExchange) (*HAL, *mockTransport) {
	m := &mockTransport{t: t, script: script}
	return New(m, HALConfig{LogFunc: func(level int, format string, param ...interface{}) {
		t.Logf(format, param...)
	}}), m
}
