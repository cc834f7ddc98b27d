package spimem

// HAL is the SPI bus as seen by one chip.
//
// A transaction is Select, any number of Transfer and Write calls, then
// Deselect. The driver always calls Deselect after a successful Select, also
// when a transfer failed.
type HAL interface {
	// Select asserts chip select.
	Select() error
	// Deselect releases chip select. Data received by Transfer within the
	// transaction is valid once Deselect returns.
	Deselect() error
	// Transfer clocks out p and replaces it with the bytes clocked in.
	Transfer(p []byte) error
	// Write clocks out p and discards the bytes clocked in.
	Write(p []byte) error
}
