//go:build !tinygo

package lora

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// TransportConfig holds the configuration for the Linux/periph.io transport.
type TransportConfig struct {
	// SPIBusPath is the path to the SPI bus (e.g., "/dev/spidev0.0").
	// Defaults to "/dev/spidev0.0" if not provided.
	SPIBusPath string
	// SPIClockHz is the SPI clock frequency in Hz.
	// Defaults to 8000000 (8MHz) if not provided. The SX127x tolerates up
	// to 10MHz.
	SPIClockHz int
	// ResetPin is the GPIO pin number (BCM numbering) for the radio's
	// reset line. Optional. If not provided, no hardware reset is
	// performed.
	ResetPin int
}

// SPITransport drives the radio's register bus over periph.io SPI, with an
// optional GPIO reset line.
type SPITransport struct {
	port spi.PortCloser
	conn spi.Conn
	rst  gpio.PinIO
}

// NewTransport opens the SPI bus and reset pin for Linux systems using
// periph.io and returns a transport ready for New.
func NewTransport(c TransportConfig) (*SPITransport, error) {
	// Initialize periph.io host (required for both SPI and GPIO)
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io host: %w", err)
	}

	if c.SPIBusPath == "" {
		c.SPIBusPath = "/dev/spidev0.0"
	}

	p, err := spireg.Open(c.SPIBusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port: %w", err)
	}

	if c.SPIClockHz == 0 {
		c.SPIClockHz = 8000000
	}

	// Mode 0, 8 bits
	conn, err := p.Connect(physic.Frequency(c.SPIClockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create SPI connection: %w", err)
	}

	t := &SPITransport{port: p, conn: conn}

	if c.ResetPin != 0 {
		rstName := fmt.Sprintf("GPIO%d", c.ResetPin)
		rst := gpioreg.ByName(rstName)
		if rst == nil {
			p.Close()
			return nil, fmt.Errorf("failed to open reset pin %s", rstName)
		}
		t.rst = rst
	}

	return t, nil
}

// Init implements Transport. The bus is already open; nothing to do here.
func (t *SPITransport) Init() error {
	return nil
}

func (t *SPITransport) WriteRegister(reg, value byte) error {
	w := []byte{reg | _SPI_WNR, value}
	return t.conn.Tx(w, make([]byte, len(w)))
}

func (t *SPITransport) WriteBuffer(reg byte, data []byte) error {
	w := append([]byte{reg | _SPI_WNR}, data...)
	return t.conn.Tx(w, make([]byte, len(w)))
}

func (t *SPITransport) ReadRegister(reg byte) (byte, error) {
	w := []byte{reg &^ byte(_SPI_WNR), 0x00}
	r := make([]byte, len(w))
	if err := t.conn.Tx(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (t *SPITransport) ReadBuffer(reg byte, buf []byte) error {
	w := make([]byte, len(buf)+1)
	w[0] = reg &^ byte(_SPI_WNR)
	r := make([]byte, len(w))
	if err := t.conn.Tx(w, r); err != nil {
		return err
	}
	copy(buf, r[1:])
	return nil
}

func (t *SPITransport) Delay(d time.Duration) {
	time.Sleep(d)
}

// HardwareReset toggles the reset line low then high, waiting for the chip's
// power-on sequence after each edge. A no-op when no reset pin is configured.
func (t *SPITransport) HardwareReset() error {
	if t.rst == nil {
		return nil
	}
	if err := t.rst.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	if err := t.rst.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Close releases the SPI bus.
func (t *SPITransport) Close() error {
	return t.port.Close()
}
