package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// ErrValidationUnsupported marks a source that uses WGSL features the validating compiler
// does not implement yet. Such sources are not known to be invalid.
var ErrValidationUnsupported = errors.New("shader: validation unsupported")

// Validate compiles processed WGSL source to SPIR-V and discards the result, reporting any
// parse or type error. Sources the compiler cannot handle yet return an error wrapping
// ErrValidationUnsupported.
//
// Parameters:
//   - source: processed WGSL source, with every @oxy annotation expanded
//
// Returns:
//   - error: nil if the source compiles, otherwise the compiler error
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		if unsupported(err) {
			return fmt.Errorf("%w: %v", ErrValidationUnsupported, err)
		}
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

func unsupported(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported")
}
