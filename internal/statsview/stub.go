//go:build !statsview

package statsview

import "io"

// Launch is a no-op in a default build; the dashboard only exists in
// binaries compiled with -tags statsview.
func Launch(output io.Writer) {}

// Available reports whether this build was compiled with the statsview tag.
func Available() bool { return false }
