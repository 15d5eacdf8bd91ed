package periph

import (
	"errors"
	"fmt"
)

// Normalized error kinds for the control plane. Callers classify with
// errors.Is; the wrapped message carries the diagnostic detail.
var (
	// ErrConfiguration indicates a caller-supplied configuration is
	// structurally invalid. Never retried, no partial state change.
	ErrConfiguration = errors.New("INVALID_CONFIGURATION")

	// ErrHardware indicates a register or bus transaction failed. The
	// triggering operation is aborted; state programmed earlier in the
	// same operation is left as-is.
	ErrHardware = errors.New("HARDWARE_ACCESS")
)

// ConfigErrorf wraps ErrConfiguration with a formatted detail message.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// HardwareErrorf wraps ErrHardware with a formatted detail message. The
// underlying bus error, if any, should be part of the formatted message
// via %v so the sentinel stays the match target.
func HardwareErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrHardware, fmt.Sprintf(format, args...))
}
