package spimem

import (
	"errors"
	"fmt"
)

// Operation errors. Test for them with errors.Is.
var (
	// ErrTransport is returned when the bus itself failed. The error from the
	// HAL is always wrapped alongside it.
	ErrTransport = errors.New("spimem: transport error")

	// ErrOutOfBounds is used when an address or length exceeds the chip
	// capacity. No bus activity has happened.
	ErrOutOfBounds = errors.New("spimem: address out of bounds")

	// ErrAlignment is used when an erase address is not aligned to the erase
	// granularity. No bus activity has happened.
	ErrAlignment = errors.New("spimem: misaligned erase address")

	// ErrLatch is used when the write enable latch was not observed after
	// WRITE ENABLE. The program or erase command was not sent.
	ErrLatch = errors.New("spimem: write enable latch not set")

	// ErrUnexpectedStatus is used when the status register holds flags that
	// should not be set, e.g. a write still in progress when the driver is
	// created.
	//
	// This can happen when the chip is faulty, incorrectly connected or a
	// previous user left an operation running.
	ErrUnexpectedStatus = errors.New("spimem: unexpected value in status register")
)

// Configuration and encoding errors.
var (
	ErrGeometry      = errors.New("spimem: inconsistent geometry")
	ErrUnknownDevice = errors.New("spimem: unknown device")
	ErrAddressWidth  = errors.New("spimem: address does not fit address width")
	ErrPageBoundary  = errors.New("spimem: program data crosses page boundary")
)

// transportError wraps err from the bus so that it matches both ErrTransport
// and the original error.
func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
