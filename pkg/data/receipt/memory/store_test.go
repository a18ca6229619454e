package memory

import (
	"testing"

	"github.com/code-payments/auction-house-server/pkg/data/receipt/tests"
)

func TestReceiptMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
