//go:build !unix

package credentials

import "os"

// Without flock only the in-process mutex serializes writers.
func lockShared(*os.File) error    { return nil }
func lockExclusive(*os.File) error { return nil }
func unlock(*os.File)              {}
