//go:build tinygo

package lora

import (
	"time"

	"machine"
)

// TinyGoTransport drives the radio's register bus over machine.SPI with
// manual chip-select handling.
type TinyGoTransport struct {
	spi *machine.SPI
	cs  machine.Pin
	rst machine.Pin
}

// NewTinyGoTransport returns a transport for TinyGo systems. The SPI bus must
// already be configured. Pass machine.NoPin as rst when the reset line is not
// wired.
func NewTinyGoTransport(spi *machine.SPI, cs, rst machine.Pin) *TinyGoTransport {
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	if rst != machine.NoPin {
		rst.Configure(machine.PinConfig{Mode: machine.PinOutput})
		rst.High()
	}

	return &TinyGoTransport{spi: spi, cs: cs, rst: rst}
}

func (t *TinyGoTransport) Init() error {
	return nil
}

func (t *TinyGoTransport) tx(w, r []byte) error {
	t.cs.Low()
	err := t.spi.Tx(w, r)
	t.cs.High()
	return err
}

func (t *TinyGoTransport) WriteRegister(reg, value byte) error {
	return t.tx([]byte{reg | _SPI_WNR, value}, nil)
}

func (t *TinyGoTransport) WriteBuffer(reg byte, data []byte) error {
	w := append([]byte{reg | _SPI_WNR}, data...)
	return t.tx(w, nil)
}

func (t *TinyGoTransport) ReadRegister(reg byte) (byte, error) {
	w := []byte{reg &^ byte(_SPI_WNR), 0x00}
	r := make([]byte, len(w))
	if err := t.tx(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (t *TinyGoTransport) ReadBuffer(reg byte, buf []byte) error {
	w := make([]byte, len(buf)+1)
	w[0] = reg &^ byte(_SPI_WNR)
	r := make([]byte, len(w))
	if err := t.tx(w, r); err != nil {
		return err
	}
	copy(buf, r[1:])
	return nil
}

func (t *TinyGoTransport) Delay(d time.Duration) {
	time.Sleep(d)
}

func (t *TinyGoTransport) HardwareReset() error {
	if t.rst == machine.NoPin {
		return nil
	}
	t.rst.Low()
	time.Sleep(10 * time.Millisecond)
	t.rst.High()
	time.Sleep(10 * time.Millisecond)
	return nil
}
