// Package gohid is the small part of a HID library the bridge needs: feature
// reports on an already known device.
package gohid

import "github.com/pkg/errors"

type HIDDevice interface {
	GetFeatureReport(b []byte) (int, error)
	SendFeatureReport(b []byte) (int, error)
	Close() error
}

var (
	ErrorTooLong     = errors.New("Transfer is too long")
	ErrorUnsupported = errors.New("Raw HID access is not supported on this platform")
)

// OpenHID opens a raw HID device node such as /dev/hidraw0.
func OpenHID(path string) (HIDDevice, error) {
	return openHIDInternal(path)
}
