// Package wavecaltest provides per-test fixtures and assertions for exercising
// calibrators through the real scene generator, harness and run store.
//
// Every fixture call builds a fresh, independently owned scene and case; no
// state is shared between tests. Each Fixture gets an isolated SQLite ledger
// via t.TempDir() and a sandboxed HOME so nothing touches user data.
//
// Usage:
//
//	func TestGratingCalibrator(t *testing.T) {
//	    f := wavecaltest.New(t)
//	    c, extras := f.Case("argon-grating-blind")
//	    err := harness.Invoke[harness.Calibrator](ctx, c, cal, extras)
//	    wavecaltest.RequirePassed(t, c, err)
//	}
package wavecaltest
