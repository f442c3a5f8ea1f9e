//go:build !debug

package check

// Enabled reports whether assertions are compiled in.
const Enabled = false

// Assert does nothing without the debug tag.
func Assert(bool, string) {}

// Assertf does nothing without the debug tag.
func Assertf(bool, string, ...any) {}
