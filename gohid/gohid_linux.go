//go:build linux
// +build linux

package gohid

import (
	"os"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type HIDRaw struct {
	dev *os.File
}

func openHIDInternal(path string) (HIDDevice, error) {
	/* Feature report ioctls need write access */
	dev, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	return &HIDRaw{
		dev: dev,
	}, nil
}

const (
	hidrawIoctlType    = 'H'
	hidrawNrSetFeature = 0x06
	hidrawNrGetFeature = 0x07

	maxFeatureReport = 256
)

/* _IOC(_IOC_WRITE|_IOC_READ, 'H', nr, len) */
func hidiocFeature(nr uintptr, length int) uintptr {
	return uintptr(3)<<30 | uintptr(length)<<16 | hidrawIoctlType<<8 | nr
}

func (h *HIDRaw) ioctl(name string, nr uintptr, buf *[maxFeatureReport]byte, length int) error {
	_, _, errno := unix.Syscall(
		syscall.SYS_IOCTL,
		h.dev.Fd(),
		hidiocFeature(nr, length),
		uintptr(unsafe.Pointer(buf)),
	)
	runtime.KeepAlive(buf)

	if errno != 0 {
		return os.NewSyscallError(name, errno)
	}
	return nil
}

func (h *HIDRaw) SendFeatureReport(b []byte) (int, error) {
	var tmp [maxFeatureReport]byte

	if len(b) > len(tmp) {
		return 0, errors.Wrapf(ErrorTooLong, "%d bytes", len(b))
	}
	copy(tmp[:], b)

	if err := h.ioctl("SendFeatureReport", hidrawNrSetFeature, &tmp, len(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (h *HIDRaw) GetFeatureReport(b []byte) (int, error) {
	var tmp [maxFeatureReport]byte

	if len(b) > len(tmp) {
		return 0, errors.Wrapf(ErrorTooLong, "%d bytes", len(b))
	}
	/* The first byte selects the report */
	copy(tmp[:1], b)

	if err := h.ioctl("GetFeatureReport", hidrawNrGetFeature, &tmp, len(b)); err != nil {
		return 0, err
	}
	return copy(b, tmp[:]), nil
}

func (h *HIDRaw) Close() error {
	return h.dev.Close()
}
