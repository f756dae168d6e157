package lora

import "time"

// Transport is the register-addressed bus below the driver. Implementations
// own chip-select handling and the address read/write conventions of the
// concrete bus; the driver only ever sees registers.
type Transport interface {
	// Init prepares the bus for register traffic.
	Init() error
	// WriteRegister writes one byte to a register.
	WriteRegister(reg, value byte) error
	// WriteBuffer writes data into a register with an internal pointer
	// (the FIFO) in a single transaction.
	WriteBuffer(reg byte, data []byte) error
	// ReadRegister reads one byte from a register.
	ReadRegister(reg byte) (byte, error)
	// ReadBuffer fills buf from a register with an internal pointer
	// (the FIFO) in a single transaction.
	ReadBuffer(reg byte, buf []byte) error
	// Delay pauses without holding the bus.
	Delay(d time.Duration)
}

// Resetter is implemented by transports wired to the radio's reset line.
type Resetter interface {
	// HardwareReset toggles the reset line and waits for the chip to come
	// back up.
	HardwareReset() error
}
