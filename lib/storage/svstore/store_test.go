package svstore

import (
	"testing"

	storagetesting "github.com/ValentinKolb/dTxn/lib/storage/testing"
)

func Test(t *testing.T) {
	storagetesting.RunStorageTests(t, "SingleVersionStore", NewSingleVersionStore)
}
