// Package check holds invariant assertions that are compiled in only with
// the debug build tag (go test -tags debug ./...).
package check

// Violation is the panic value of a failed assertion.
type Violation string

func (v Violation) Error() string {
	return "invariant violated: " + string(v)
}
