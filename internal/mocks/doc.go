// Package mocks provides centralized mock implementations for testing.
//
// The store fakes keep their data in memory behind a mutex, so they can be
// shared by concurrent goroutines in a test. Each fake also exposes function
// fields or error fields that override the default behavior for a single
// method.
//
// Usage:
//
//	import "github.com/phrazzld/sprout-api/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    schedule := mocks.NewMockScheduleStore()
//	    schedule.CountPendingErr = errors.New("boom")
//
//	    svc := mysvc.New(schedule.Rules(), schedule.Occurrences(), schedule)
//	    // ...
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Add a compile-time assertion that the mock implements it
//  3. Copy entities on the way in and out so tests cannot mutate stored state
package mocks
