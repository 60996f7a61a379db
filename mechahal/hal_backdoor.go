package mechahal

import (
	"encoding/binary"
)

const (
	opBackDoor byte = 0x03

	backDoorSentinel   = 0xA4
	backDoorFetchMagic = 0x44434DA4

	statusPrimed  = 0x81
	statusWordOK  = 0x42
	backDoorWords = 4
)

type backDoorMode uint32

const (
	backDoorModeRead backDoorMode = 0
	backDoorModeExec backDoorMode = 1
)

func (m backDoorMode) String() string {
	if m == backDoorModeExec {
		return "execute"
	}
	return "read"
}

type backDoorPhase int

const (
	phasePrime backDoorPhase = iota
	phaseFetch
	phaseDone
)

/* A back door access is two commands on opcode 03: the prime phase loads the
 * address and argument, the fetch phase (called execute for mode 1) collects
 * the result. */
type backDoorOp struct {
	hal   *HAL
	mode  backDoorMode
	addr  uint32
	phase backDoorPhase

	request [backDoorWords * 4]byte
	reply   []byte
}

func (h *HAL) newBackDoorOp(mode backDoorMode, addr uint32, arg uint32) *backDoorOp {
	op := &backDoorOp{
		hal:   h,
		mode:  mode,
		addr:  addr,
		phase: phasePrime,
	}

	binary.LittleEndian.PutUint32(op.request[0:], backDoorSentinel)
	binary.LittleEndian.PutUint32(op.request[4:], uint32(mode))
	binary.LittleEndian.PutUint32(op.request[8:], addr)
	binary.LittleEndian.PutUint32(op.request[12:], arg)

	return op
}

func (op *backDoorOp) phaseName() string {
	switch op.phase {
	case phasePrime:
		return "prime"
	case phaseFetch:
		if op.mode == backDoorModeExec {
			return "execute"
		}
		return "fetch"
	}
	return "done"
}

func (op *backDoorOp) statusError(status byte, expected byte, err error) error {
	return &PhaseError{
		Op:       op.mode.String(),
		Phase:    op.phaseName(),
		Addr:     op.addr,
		Status:   status,
		Expected: expected,
		Err:      err,
	}
}

func (op *backDoorOp) prime() error {
	reply, err := op.hal.scmd(opBackDoor, op.request[:], 5)
	if err != nil {
		return err
	}
	if reply[0] != statusPrimed {
		return op.statusError(reply[0], statusPrimed, ErrorUnexpectedStatus)
	}

	op.phase = phaseFetch
	return nil
}

func (op *backDoorOp) fetch() error {
	binary.LittleEndian.PutUint32(op.request[0:], backDoorFetchMagic)

	replyLen := 5
	if op.mode == backDoorModeExec {
		replyLen = 16
	}

	reply, err := op.hal.scmd(opBackDoor, op.request[:9], replyLen)
	if err != nil {
		return err
	}

	if op.mode == backDoorModeExec {
		/* The reply belongs to the payload, only the sentinel is meaningful */
		if reply[0] == backDoorSentinel {
			return op.statusError(reply[0], 0, ErrorBackDoorInactive)
		}
	} else if reply[0] != statusWordOK {
		return op.statusError(reply[0], statusWordOK, ErrorUnexpectedStatus)
	}

	op.reply = reply
	op.phase = phaseDone
	return nil
}

func (op *backDoorOp) step() error {
	switch op.phase {
	case phasePrime:
		return op.prime()
	case phaseFetch:
		return op.fetch()
	}
	return nil
}

func (op *backDoorOp) run() ([]byte, error) {
	for op.phase != phaseDone {
		if err := op.step(); err != nil {
			return nil, err
		}
	}
	return op.reply, nil
}

// Probe checks whether the back door answers the challenge.
func (h *HAL) Probe() (bool, error) {
	var request [9]byte
	request[0] = backDoorSentinel

	reply, err := h.scmd(opBackDoor, request[:], 1)
	if err != nil {
		return false, err
	}
	return reply[0] == backDoorSentinel, nil
}

func (h *HAL) requireBackDoor() error {
	active, err := h.Probe()
	if err != nil {
		return err
	}
	if !active {
		return ErrorBackDoorInactive
	}
	return nil
}

// ReadWord reads one little-endian word from the controller address space.
func (h *HAL) ReadWord(addr uint32) (uint32, error) {
	reply, err := h.newBackDoorOp(backDoorModeRead, addr, 0).run()
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(reply[1:]), nil
}

// ExecuteWord calls the code at addr with arg in r3 and returns the raw
// reply it produced.
func (h *HAL) ExecuteWord(addr uint32, arg uint32) ([16]byte, error) {
	var result [16]byte

	reply, err := h.newBackDoorOp(backDoorModeExec, addr, arg).run()
	if err != nil {
		return result, err
	}
	copy(result[:], reply)
	return result, nil
}
