package mechasim

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestProbeFollowsActive(t *testing.T) {
	c := New(1)
	req := make([]byte, 9)
	req[0] = 0xA4

	reply, err := c.SCmd(0x03, req, 1)
	if err != nil || reply[0] != 0xA4 {
		t.Fatalf("active probe: %x %v", reply, err)
	}

	c.Active = false
	reply, _ = c.SCmd(0x03, req, 1)
	if reply[0] == 0xA4 {
		t.Fatal("inactive controller answered the challenge")
	}
}

func TestWriteNVMBusy(t *testing.T) {
	c := New(1)
	c.NVMBusy = 2

	var reply [16]byte
	var cmd [4]byte
	binary.BigEndian.PutUint16(cmd[:], 0x100)
	cmd[2], cmd[3] = 0xBE, 0xEF
	arg := binary.LittleEndian.Uint32(cmd[:])

	for i, want := range []byte{0x01, 0x01, 0x00} {
		c.writeNVM(arg, reply[:])
		if reply[0] != want {
			t.Fatalf("attempt %d: status %02x, want %02x", i, reply[0], want)
		}
	}
	if c.NVM[0x200] != 0xEF || c.NVM[0x201] != 0xBE {
		t.Fatalf("NVM not written: %x", c.NVM[0x200:0x202])
	}
}

func TestResetPowersOff(t *testing.T) {
	c := New(1)
	c.Register(BehaviorFastDump, []byte("0123456789abcdef"))

	var reply [16]byte
	c.execute(0, 0, reply[:])
	if !c.PoweredOff() || c.Resets != 1 {
		t.Fatal("reset did not power off")
	}
	if _, err := c.SCmd(0x17, []byte{0}, 9); !errors.Is(err, ErrorPoweredOff) {
		t.Fatalf("command after reset: %v", err)
	}
}

func TestUnknownOpcodeRejected(t *testing.T) {
	c := New(1)
	if _, err := c.SCmd(0x42, nil, 1); !errors.Is(err, ErrorRejected) {
		t.Fatalf("got %v", err)
	}
}
