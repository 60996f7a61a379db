// Package mechasim is an in-memory controller with an installed back door. It
// answers the same commands as real hardware so the tools can be exercised
// without a console.
package mechasim

import (
	"bytes"
	"encoding/binary"
	"math/rand"

	"github.com/pkg/errors"
)

var (
	ErrorPoweredOff = errors.New("Controller has been reset")
	ErrorRejected   = errors.New("Command rejected")
)

const (
	romSize      = 0x44000
	ramBase      = 0x02000000
	ramSize      = 0x4000
	nvmSize      = 0x400
	keystoreSize = 0x400

	fetchMagic = 0x44434DA4
)

type Behavior int

const (
	BehaviorFastDump Behavior = iota
	BehaviorKeystore
	BehaviorWriteNVM
)

type registered struct {
	behavior Behavior
	code     []byte
}

type Controller struct {
	ROM      []byte
	RAM      []byte
	NVM      []byte
	Keystore []byte

	Major, Minor byte
	/* BCD year, month, day, hour, minute */
	Date  [5]byte
	Model string

	Active bool

	/* Where uploaded configuration header bodies land in RAM, negative
	 * drops them */
	UploadOffset int

	/* Busy replies returned before each NVM word write succeeds */
	NVMBusy int
	/* ROM chunk addresses that get a wrong checksum */
	BadChecksum map[uint32]bool

	/* Observations for tests */
	ROMReads []uint32
	Commands int
	Resets   int

	payloads []registered

	primed    bool
	primeMode uint32
	primeAddr uint32
	primeArg  uint32

	uploadPos  int
	busyWord   int
	busyLeft   int
	poweredOff bool
}

// New returns a controller with pseudo random ROM, RAM and key store
// contents derived from seed.
func New(seed int64) *Controller {
	rng := rand.New(rand.NewSource(seed))

	c := &Controller{
		ROM:      make([]byte, romSize),
		RAM:      make([]byte, ramSize),
		NVM:      make([]byte, nvmSize),
		Keystore: make([]byte, keystoreSize),

		Major: 6,
		Minor: 0x0C,
		Date:  [5]byte{0x09, 0x01, 0x21, 0x12, 0x34},
		Model: "SCPH-90006",

		Active:       true,
		UploadOffset: 0x1A40,
		BadChecksum:  map[uint32]bool{},

		busyWord: -1,
	}

	rng.Read(c.ROM)
	rng.Read(c.RAM)
	rng.Read(c.Keystore)
	for i := range c.NVM {
		c.NVM[i] = 0xFF
	}

	return c
}

// Register tells the controller what to do when code starting with payload
// is executed.
func (c *Controller) Register(b Behavior, payload []byte) {
	c.payloads = append(c.payloads, registered{behavior: b, code: append([]byte(nil), payload...)})
}

func (c *Controller) PoweredOff() bool {
	return c.poweredOff
}

func (c *Controller) SCmd(opcode byte, request []byte, replyLen int) ([]byte, error) {
	if c.poweredOff {
		return nil, ErrorPoweredOff
	}
	c.Commands++

	reply := make([]byte, replyLen)
	if replyLen == 0 {
		return reply, nil
	}

	switch opcode {
	case 0x03:
		return c.backDoor(request, reply)
	case 0x90:
		return c.uploadHeader(request, reply)
	case 0x8D:
		return c.uploadChunk(request, reply)
	case 0x0A:
		return c.readNVM(request, reply)
	case 0x17:
		return c.model(request, reply)
	}

	return nil, errors.Wrapf(ErrorRejected, "opcode %02x", opcode)
}

func (c *Controller) backDoor(request []byte, reply []byte) ([]byte, error) {
	switch len(request) {
	case 1:
		return c.version(request[0], reply)
	case 9:
		if binary.LittleEndian.Uint32(request) == fetchMagic {
			return c.fetch(reply)
		}
		if c.Active && request[0] == 0xA4 {
			reply[0] = 0xA4
		}
		return reply, nil
	case 16:
		if !c.Active || binary.LittleEndian.Uint32(request) != 0xA4 {
			c.primed = false
			return reply, nil
		}
		c.primed = true
		c.primeMode = binary.LittleEndian.Uint32(request[4:])
		c.primeAddr = binary.LittleEndian.Uint32(request[8:])
		c.primeArg = binary.LittleEndian.Uint32(request[12:])
		reply[0] = 0x81
		return reply, nil
	}

	return nil, errors.Wrapf(ErrorRejected, "back door request of %d bytes", len(request))
}

func (c *Controller) fetch(reply []byte) ([]byte, error) {
	if !c.primed || !c.Active {
		reply[0] = 0xA4
		return reply, nil
	}
	c.primed = false

	if c.primeMode == 0 {
		word, ok := c.readWord(c.primeAddr)
		if !ok {
			return reply, nil
		}
		reply[0] = 0x42
		binary.LittleEndian.PutUint32(reply[1:], word)
		return reply, nil
	}

	return c.execute(c.primeAddr, c.primeArg, reply)
}

func (c *Controller) readWord(addr uint32) (uint32, bool) {
	if addr%4 != 0 {
		return 0, false
	}
	if addr+4 <= romSize {
		return binary.LittleEndian.Uint32(c.ROM[addr:]), true
	}
	if addr >= ramBase && addr+4 <= ramBase+ramSize {
		return binary.LittleEndian.Uint32(c.RAM[addr-ramBase:]), true
	}
	return 0, false
}

func (c *Controller) execute(addr uint32, arg uint32, reply []byte) ([]byte, error) {
	if addr == 0 {
		c.Resets++
		c.poweredOff = true
		return reply, nil
	}

	if addr&1 == 0 || addr < ramBase || addr >= ramBase+ramSize {
		reply[0] = 0xEE
		return reply, nil
	}
	code := c.RAM[(addr&^1)-ramBase:]

	for _, p := range c.payloads {
		if !bytes.HasPrefix(code, p.code) {
			continue
		}

		switch p.behavior {
		case BehaviorFastDump:
			c.fastDump(arg, reply)
		case BehaviorKeystore:
			c.keystoreRead(arg, reply)
		case BehaviorWriteNVM:
			c.writeNVM(arg, reply)
		}
		return reply, nil
	}

	/* Jumping into unknown code */
	reply[0] = 0xEE
	return reply, nil
}

func (c *Controller) fastDump(addr uint32, reply []byte) {
	c.ROMReads = append(c.ROMReads, addr)

	var sum byte
	for i := 0; i < 4; i++ {
		sum += byte(addr >> (i * 8))
	}
	for i := 0; i < 14; i++ {
		var b byte
		if int(addr)+i < len(c.ROM) {
			b = c.ROM[int(addr)+i]
		}
		reply[2+i] = b
		sum += b
	}

	reply[0] = 0x69
	reply[1] = ^sum
	if c.BadChecksum[addr] {
		reply[1] ^= 0x5A
	}
}

func (c *Controller) keystoreRead(index uint32, reply []byte) {
	if int(index*2)+8 > len(c.Keystore) {
		reply[0] = 0x02
		return
	}
	reply[0] = 0
	copy(reply[1:9], c.Keystore[index*2:])
}

func (c *Controller) writeNVM(arg uint32, reply []byte) {
	var cmd [4]byte
	binary.LittleEndian.PutUint32(cmd[:], arg)
	off := int(binary.BigEndian.Uint16(cmd[:]))

	if off*2+1 >= len(c.NVM) {
		reply[0] = 0x03
		return
	}

	if c.busyWord != off {
		c.busyWord = off
		c.busyLeft = c.NVMBusy
	}
	if c.busyLeft > 0 {
		c.busyLeft--
		reply[0] = 0x01
		return
	}

	c.NVM[off*2] = cmd[3]
	c.NVM[off*2+1] = cmd[2]
	reply[0] = 0
}

func (c *Controller) uploadHeader(request []byte, reply []byte) ([]byte, error) {
	if len(request) != 5 || request[0] != 0x00 {
		reply[0] = 0x01
		return reply, nil
	}
	c.uploadPos = 0
	reply[0] = 0
	return reply, nil
}

func (c *Controller) uploadChunk(request []byte, reply []byte) ([]byte, error) {
	if len(request) > 0x10 {
		reply[0] = 0x01
		return reply, nil
	}
	if c.UploadOffset >= 0 && c.UploadOffset+c.uploadPos < len(c.RAM) {
		copy(c.RAM[c.UploadOffset+c.uploadPos:], request)
	}
	c.uploadPos += len(request)
	reply[0] = 0
	return reply, nil
}

func (c *Controller) version(sub byte, reply []byte) ([]byte, error) {
	switch sub {
	case 0x00:
		if len(reply) >= 3 {
			reply[1] = c.Major
			reply[2] = c.Minor
		}
	case 0xFD:
		copy(reply[1:], c.Date[:])
	default:
		reply[0] = 0x80
	}
	return reply, nil
}

func (c *Controller) readNVM(request []byte, reply []byte) ([]byte, error) {
	if len(request) != 2 || len(reply) < 3 {
		return nil, errors.Wrap(ErrorRejected, "read NVM")
	}
	off := int(binary.BigEndian.Uint16(request))
	if off*2+1 >= len(c.NVM) {
		reply[0] = 0x01
		return reply, nil
	}
	reply[1] = c.NVM[off*2+1]
	reply[2] = c.NVM[off*2]
	return reply, nil
}

func (c *Controller) model(request []byte, reply []byte) ([]byte, error) {
	if len(request) != 1 || len(reply) < 9 {
		return nil, errors.Wrap(ErrorRejected, "model")
	}

	var model [16]byte
	copy(model[:], c.Model)
	if request[0] > 8 {
		reply[0] = 0x01
		return reply, nil
	}
	copy(reply[1:9], model[request[0]:])
	return reply, nil
}
