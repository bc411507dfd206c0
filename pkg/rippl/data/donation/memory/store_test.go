package memory

import (
	"testing"

	"github.com/rippl-labs/rippl-server/pkg/rippl/data/donation/tests"
)

func TestDonationMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}

	tests.RunTests(t, testStore, teardown)
}
