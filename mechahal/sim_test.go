package mechahal

import (
	"testing"

	"github.com/BertoldVdb/mecha-tools/mechahal/mechasim"
)

var (
	testFastDumpPayload = []byte("FAST-DUMP-PAYLOAD-FOR-TESTS-0001")
	testKeystorePayload = []byte("KEYSTORE-PAYLOAD-FOR-TESTS-00002")
	testWriteNVMPayload = []byte("WRITE-NVM-PAYLOAD-FOR-TESTS-0003")
)

func newSimHAL(t *testing.T, config HALConfig) (*HAL, *mechasim.Controller) {
	c := mechasim.New(42)
	c.Register(mechasim.BehaviorFastDump, testFastDumpPayload)
	c.Register(mechasim.BehaviorKeystore, testKeystorePayload)
	c.Register(mechasim.BehaviorWriteNVM, testWriteNVMPayload)

	if config.LogFunc == nil {
		config.LogFunc = func(level int, format string, param ...interface{}) {
			if level < 3 {
				t.Logf(format, param...)
			}
		}
	}
	return New(c, config), c
}
