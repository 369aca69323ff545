// Package storetest provides a conformance suite for store.Store
// implementations.
package storetest

import (
	"context"
	"testing"

	"github.com/guzman109/ArrayMorph/pkg/store"
)

// StoreTestSuite tests the store.Store contract, not implementation details,
// so the same suite runs against every platform.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetest.StoreTestSuite{
//	        NewStore: func(t *testing.T) store.Store {
//	            return mystore.New(...)
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) store.Store

	// SkipClosed skips the closed-store checks for backends whose Close
	// does not reject further calls.
	SkipClosed bool
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ObjectOperations", suite.RunObjectTests)
	t.Run("RangeOperations", suite.RunRangeTests)
	t.Run("PrefixOperations", suite.RunPrefixTests)
	if !suite.SkipClosed {
		t.Run("Lifecycle", suite.RunLifecycleTests)
	}
}

func testContext() context.Context {
	return context.Background()
}
