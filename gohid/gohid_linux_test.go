//go:build linux
// +build linux

package gohid

import "testing"

func TestHidiocFeature(t *testing.T) {
	/* HIDIOCSFEATURE(9) and HIDIOCGFEATURE(9) from linux/hidraw.h */
	if got := hidiocFeature(hidrawNrSetFeature, 9); got != 0xC0094806 {
		t.Errorf("set feature: %08x", got)
	}
	if got := hidiocFeature(hidrawNrGetFeature, 32); got != 0xC0204807 {
		t.Errorf("get feature: %08x", got)
	}
}
