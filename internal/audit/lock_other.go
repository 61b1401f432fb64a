//go:build !unix

package audit

import "os"

// lockExclusive is a no-op on non-Unix platforms; the append path is
// still correct without it for a single-process CLI invocation, just
// without the cross-process advisory guarantee.
func lockExclusive(f *os.File) error { return nil }

// unlock is the no-op counterpart to lockExclusive.
func unlock(f *os.File) error { return nil }
