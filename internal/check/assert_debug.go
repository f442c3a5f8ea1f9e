//go:build debug

package check

import "fmt"

// Enabled reports whether assertions are compiled in.
const Enabled = true

// Assert panics with a Violation when cond does not hold.
func Assert(cond bool, msg string) {
	if !cond {
		panic(Violation(msg))
	}
}

// Assertf is Assert with a formatted message.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(Violation(fmt.Sprintf(format, args...)))
	}
}
