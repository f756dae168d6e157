package lora

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrPkg          = errors.New("sx127x")
	ErrChipNotFound = errors.New("chip version check failed")
	ErrTxTimeout    = errors.New("timeout waiting for tx completion")
	ErrNoPacket     = errors.New("no packet pending")
	ErrCRC          = errors.New("payload crc mismatch")
	ErrBandwidth    = errors.New("bandwidth index out of range")
	ErrDIOPin       = errors.New("dio pin out of range")
)

// OpMode is an operating mode of the radio.
type OpMode byte

const (
	OpModeSleep             OpMode = _MODE_SLEEP
	OpModeStandby           OpMode = _MODE_STDBY
	OpModeTransmit          OpMode = _MODE_TX
	OpModeReceiveContinuous OpMode = _MODE_RX_CONTINUOUS
)

func (m OpMode) String() string {
	switch m {
	case OpModeSleep:
		return "sleep"
	case OpModeStandby:
		return "standby"
	case OpModeTransmit:
		return "transmit"
	case OpModeReceiveContinuous:
		return "rx-continuous"
	default:
		return "unknown"
	}
}

// Bandwidth indices accepted by SetBandwidth, per the SX127x datasheet.
const (
	Bandwidth7_8kHz byte = iota
	Bandwidth10_4kHz
	Bandwidth15_6kHz
	Bandwidth20_8kHz
	Bandwidth31_25kHz
	Bandwidth41_7kHz
	Bandwidth62_5kHz
	Bandwidth125kHz
	Bandwidth250kHz
	Bandwidth500kHz
)

// Config holds the radio parameters applied during New.
type Config struct {
	// FrequencyHz is the carrier frequency in Hz.
	// Defaults to 915000000 if not provided.
	FrequencyHz uint32
	// SpreadingFactor sets the spreading factor.
	// Range: 6 to 12, clamped.
	// Defaults to 7 if not provided.
	SpreadingFactor byte
	// Bandwidth is the signal bandwidth index (0-9, see the Bandwidth
	// constants).
	// Defaults to Bandwidth125kHz if not provided.
	Bandwidth byte
	// CodingRate is the denominator of the 4/x coding rate.
	// Range: 5 to 8, clamped.
	// Defaults to 5 if not provided.
	CodingRate byte
	// TxPower is the transmit power level in dBm on the PA_BOOST pin.
	// Range: 2 to 17, clamped.
	// Defaults to 17 if not provided.
	TxPower byte
	// PreambleLength is the preamble length in symbols.
	// Defaults to 8 if not provided.
	PreambleLength uint16
	// SyncWord sets the sync word.
	// Defaults to 0x12 (private networks) if not provided.
	SyncWord byte
	// DisableCRC disables payload CRC generation and checking.
	// CRC is enabled by default.
	DisableCRC bool
	// ImplicitPayloadSize, when non-zero, selects implicit header mode
	// with the given fixed payload length. Explicit headers are used by
	// default.
	ImplicitPayloadSize byte
}

// Device is a driver handle for one SX127x radio. Exactly one Device should
// exist per physical chip; its methods serialize on an internal mutex.
type Device struct {
	config    Config
	transport Transport

	mu           sync.Mutex
	mode         OpMode
	implicit     bool
	frequencyHz  uint32
	lostPackets  int
	lastIrqFlags byte
}

// New initializes the radio over the provided transport: hardware reset when
// the transport has a reset line, the chip identity handshake, base FIFO/LNA
// setup and the full Config. The radio is left in standby mode.
func New(t Transport, c Config) (*Device, error) {
	if c.FrequencyHz == 0 {
		c.FrequencyHz = 915000000
	}
	if c.SpreadingFactor == 0 {
		c.SpreadingFactor = 7
	}
	if c.Bandwidth == 0 {
		c.Bandwidth = Bandwidth125kHz
	}
	if c.Bandwidth > Bandwidth500kHz {
		return nil, fmt.Errorf("%w: %w (%d)", ErrPkg, ErrBandwidth, c.Bandwidth)
	}
	if c.CodingRate == 0 {
		c.CodingRate = 5
	}
	if c.TxPower == 0 {
		c.TxPower = 17
	}
	if c.PreambleLength == 0 {
		c.PreambleLength = 8
	}
	if c.SyncWord == 0 {
		c.SyncWord = 0x12
	}

	dev := &Device{
		config:    c,
		transport: t,
	}

	globalLogger.Info("Initializing SX127x SPI communication...")

	if r, ok := t.(Resetter); ok {
		if err := r.HardwareReset(); err != nil {
			return nil, fmt.Errorf("hardware reset failed: %w", err)
		}
	}

	if err := t.Init(); err != nil {
		return nil, fmt.Errorf("transport init failed: %w", err)
	}

	// Identity handshake: the version register must report 0x12 within the
	// retry budget, otherwise the chip is absent or still resetting.
	found := false
	for i := 0; i < _VERSION_POLL_LIMIT; i++ {
		v, err := t.ReadRegister(_VERSION)
		if err == nil && v == _CHIP_VERSION {
			found = true
			break
		}
		t.Delay(20 * time.Millisecond)
	}
	if !found {
		return nil, fmt.Errorf("%w: %w", ErrPkg, ErrChipNotFound)
	}

	if err := dev.applyBaseSetup(); err != nil {
		return nil, err
	}
	if err := dev.applyConfig(); err != nil {
		return nil, err
	}
	if err := dev.setMode(OpModeStandby); err != nil {
		return nil, err
	}

	globalLogger.Info("SX127x initialized. Ready to operate.")

	return dev, nil
}

// applyBaseSetup runs the fixed post-handshake sequence: sleep, FIFO base
// addresses, LNA boost and AGC. Call with lock held (or from New).
func (d *Device) applyBaseSetup() error {
	if err := d.setMode(OpModeSleep); err != nil {
		return err
	}
	if err := d.writeReg(_FIFO_RX_BASE_ADDR, 0); err != nil {
		return err
	}
	if err := d.writeReg(_FIFO_TX_BASE_ADDR, 0); err != nil {
		return err
	}
	// LNA boost on, AGC on (ModemConfig3).
	if err := d.updateReg(_LNA, func(v byte) byte { return v | 0x03 }); err != nil {
		return err
	}
	return d.writeReg(_MODEM_CONFIG_3, 0x04)
}

// applyConfig programs every Config parameter. Call with lock held (or from
// New).
func (d *Device) applyConfig() error {
	if err := d.setFrequency(d.config.FrequencyHz); err != nil {
		return err
	}
	if err := d.setSpreadingFactor(d.config.SpreadingFactor); err != nil {
		return err
	}
	if err := d.setBandwidth(d.config.Bandwidth); err != nil {
		return err
	}
	if err := d.setCodingRate(d.config.CodingRate); err != nil {
		return err
	}
	if err := d.setTxPower(d.config.TxPower); err != nil {
		return err
	}
	if err := d.setPreambleLength(d.config.PreambleLength); err != nil {
		return err
	}
	if err := d.writeReg(_SYNC_WORD, d.config.SyncWord); err != nil {
		return err
	}
	if err := d.setCRC(!d.config.DisableCRC); err != nil {
		return err
	}
	if d.config.ImplicitPayloadSize > 0 {
		return d.setImplicitHeader(d.config.ImplicitPayloadSize)
	}
	return d.setExplicitHeader()
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	header := "explicit"
	if d.implicit {
		header = "implicit"
	}
	return fmt.Sprintf("SX127x(Frequency=%dHz, SF=%d, BW=%d, CR=4/%d, Header=%s, Mode=%s)",
		d.frequencyHz,
		d.config.SpreadingFactor,
		d.config.Bandwidth,
		d.config.CodingRate,
		header,
		d.mode,
	)
}

// Close forces the radio into sleep mode and releases the transport.
// This method is concurrent safe.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.setMode(OpModeSleep); err != nil {
		globalLogger.Warn("Failed to put radio to sleep on close")
	}
	globalLogger.Info("SX127x put to sleep.")

	if c, ok := d.transport.(io.Closer); ok {
		if err := c.Close(); err != nil {
			globalLogger.Warn("Failed to close transport")
			return err
		}
		globalLogger.Info("Transport closed.")
	}
	return nil
}

// --- Register access helpers ---

func (d *Device) writeReg(reg, val byte) error {
	return d.transport.WriteRegister(reg, val)
}

func (d *Device) readReg(reg byte) (byte, error) {
	return d.transport.ReadRegister(reg)
}

// updateReg performs a read-modify-write on one register; the first failing
// access wins.
func (d *Device) updateReg(reg byte, f func(byte) byte) error {
	v, err := d.readReg(reg)
	if err != nil {
		return err
	}
	return d.writeReg(reg, f(v))
}

// --- Mode control ---

// setMode writes the operating-mode register. Transitions are unconditional;
// sequencing is the caller's responsibility. Call with lock held.
func (d *Device) setMode(m OpMode) error {
	if err := d.writeReg(_OP_MODE, _MODE_LONG_RANGE|byte(m)); err != nil {
		return err
	}
	d.mode = m
	return nil
}

// Standby puts the radio in standby mode.
// This method is concurrent safe.
func (d *Device) Standby() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(OpModeStandby)
}

// Sleep puts the radio in sleep mode.
// This method is concurrent safe.
func (d *Device) Sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(OpModeSleep)
}

// ReceiveContinuous puts the radio in continuous receive mode. Use
// PollReceived and Receive to collect packets.
// This method is concurrent safe.
func (d *Device) ReceiveContinuous() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setMode(OpModeReceiveContinuous)
}

// Mode returns the last operating mode programmed by this driver.
// This method is concurrent safe.
func (d *Device) Mode() OpMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

func (d *Device) setExplicitHeader() error {
	if err := d.updateReg(_MODEM_CONFIG_1, func(v byte) byte {
		return byte(modemConfig1(v).withImplicitHeader(false))
	}); err != nil {
		return err
	}
	d.implicit = false
	return nil
}

func (d *Device) setImplicitHeader(size byte) error {
	if err := d.updateReg(_MODEM_CONFIG_1, func(v byte) byte {
		return byte(modemConfig1(v).withImplicitHeader(true))
	}); err != nil {
		return err
	}
	if err := d.writeReg(_PAYLOAD_LENGTH, size); err != nil {
		return err
	}
	d.implicit = true
	return nil
}

// SetExplicitHeader selects per-packet payload length framing.
// This method is concurrent safe.
func (d *Device) SetExplicitHeader() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setExplicitHeader()
}

// SetImplicitHeader selects implicit header mode with a fixed payload length;
// no length field is transmitted over the air.
// This method is concurrent safe.
func (d *Device) SetImplicitHeader(size byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setImplicitHeader(size)
}

// --- Configuration ---

func (d *Device) setFrequency(hz uint32) error {
	msb, mid, lsb := frfBytes(frfFromHz(hz))
	if err := d.writeReg(_FRF_MSB, msb); err != nil {
		return err
	}
	if err := d.writeReg(_FRF_MID, mid); err != nil {
		return err
	}
	if err := d.writeReg(_FRF_LSB, lsb); err != nil {
		return err
	}
	d.frequencyHz = hz
	d.config.FrequencyHz = hz
	return nil
}

// SetFrequency programs the carrier frequency in Hz. The three frf registers
// are written high to low; there is no atomicity against concurrent radio
// activity, so change frequency only while idle.
// This method is concurrent safe.
func (d *Device) SetFrequency(hz uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setFrequency(hz)
}

// GetFrequency reads back the programmed carrier frequency in Hz, quantized
// to the synthesizer step (~61 Hz).
// This method is concurrent safe.
func (d *Device) GetFrequency() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	msb, err := d.readReg(_FRF_MSB)
	if err != nil {
		return 0, err
	}
	mid, err := d.readReg(_FRF_MID)
	if err != nil {
		return 0, err
	}
	lsb, err := d.readReg(_FRF_LSB)
	if err != nil {
		return 0, err
	}
	return hzFromFrf(frfFromBytes(msb, mid, lsb)), nil
}

func (d *Device) setSpreadingFactor(sf byte) error {
	sf = clampByte(sf, 6, 12)
	optimize, threshold := detectionTuning(sf)
	if err := d.writeReg(_DETECTION_OPTIMIZE, optimize); err != nil {
		return err
	}
	if err := d.writeReg(_DETECTION_THRESHOLD, threshold); err != nil {
		return err
	}
	if err := d.updateReg(_MODEM_CONFIG_2, func(v byte) byte {
		return byte(modemConfig2(v).withSpreadingFactor(sf))
	}); err != nil {
		return err
	}
	d.config.SpreadingFactor = sf
	return nil
}

// SetSpreadingFactor sets the spreading factor (6-12, clamped). SF6 also
// retunes the detection optimize/threshold registers.
// This method is concurrent safe.
func (d *Device) SetSpreadingFactor(sf byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setSpreadingFactor(sf)
}

// GetSpreadingFactor reads back the spreading factor.
// This method is concurrent safe.
func (d *Device) GetSpreadingFactor() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.readReg(_MODEM_CONFIG_2)
	if err != nil {
		return 0, err
	}
	return modemConfig2(v).spreadingFactor(), nil
}

func (d *Device) setBandwidth(bw byte) error {
	if bw > Bandwidth500kHz {
		return fmt.Errorf("%w: %w (%d)", ErrPkg, ErrBandwidth, bw)
	}
	if err := d.updateReg(_MODEM_CONFIG_1, func(v byte) byte {
		return byte(modemConfig1(v).withBandwidth(bw))
	}); err != nil {
		return err
	}
	d.config.Bandwidth = bw
	return nil
}

// SetBandwidth sets the signal bandwidth index (0-9). Indices above 9 are
// rejected, not clamped.
// This method is concurrent safe.
func (d *Device) SetBandwidth(bw byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setBandwidth(bw)
}

// GetBandwidth reads back the signal bandwidth index.
// This method is concurrent safe.
func (d *Device) GetBandwidth() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.readReg(_MODEM_CONFIG_1)
	if err != nil {
		return 0, err
	}
	return modemConfig1(v).bandwidth(), nil
}

func (d *Device) setCodingRate(denominator byte) error {
	if err := d.updateReg(_MODEM_CONFIG_1, func(v byte) byte {
		return byte(modemConfig1(v).withCodingRate(denominator))
	}); err != nil {
		return err
	}
	d.config.CodingRate = clampByte(denominator, 5, 8)
	return nil
}

// SetCodingRate sets the coding rate 4/d; d is clamped to [5,8].
// This method is concurrent safe.
func (d *Device) SetCodingRate(denominator byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setCodingRate(denominator)
}

// GetCodingRate reads back the coding-rate denominator (5-8).
// This method is concurrent safe.
func (d *Device) GetCodingRate() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.readReg(_MODEM_CONFIG_1)
	if err != nil {
		return 0, err
	}
	return modemConfig1(v).codingRateDenominator(), nil
}

func (d *Device) setTxPower(level byte) error {
	if err := d.writeReg(_PA_CONFIG, paConfigForLevel(level)); err != nil {
		return err
	}
	d.config.TxPower = clampByte(level, 2, 17)
	return nil
}

// SetTxPower sets the transmit power level in dBm on the PA_BOOST pin
// (2-17, clamped).
// This method is concurrent safe.
func (d *Device) SetTxPower(level byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setTxPower(level)
}

func (d *Device) setPreambleLength(length uint16) error {
	msb, lsb := splitPreamble(length)
	if err := d.writeReg(_PREAMBLE_MSB, msb); err != nil {
		return err
	}
	return d.writeReg(_PREAMBLE_LSB, lsb)
}

// SetPreambleLength sets the preamble length in symbols. No range validation
// is performed; the full 16-bit range is accepted.
// This method is concurrent safe.
func (d *Device) SetPreambleLength(length uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPreambleLength(length)
}

// GetPreambleLength reads back the preamble length in symbols.
// This method is concurrent safe.
func (d *Device) GetPreambleLength() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	msb, err := d.readReg(_PREAMBLE_MSB)
	if err != nil {
		return 0, err
	}
	lsb, err := d.readReg(_PREAMBLE_LSB)
	if err != nil {
		return 0, err
	}
	return joinPreamble(msb, lsb), nil
}

// SetSyncWord changes the radio sync word.
// This method is concurrent safe.
func (d *Device) SetSyncWord(sw byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeReg(_SYNC_WORD, sw)
}

func (d *Device) setCRC(on bool) error {
	return d.updateReg(_MODEM_CONFIG_2, func(v byte) byte {
		return byte(modemConfig2(v).withCRC(on))
	})
}

// EnableCRC enables payload CRC generation and checking.
// This method is concurrent safe.
func (d *Device) EnableCRC() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setCRC(true)
}

// DisableCRC disables payload CRC generation and checking.
// This method is concurrent safe.
func (d *Device) DisableCRC() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setCRC(false)
}

// SetDioMapping assigns a 2-bit mode to one of the DIO pins (0-5). Other
// pins' fields in the same mapping register are preserved.
// This method is concurrent safe.
func (d *Device) SetDioMapping(pin int, mode byte) error {
	reg, shift, ok := dioField(pin)
	if !ok {
		return fmt.Errorf("%w: %w (%d)", ErrPkg, ErrDIOPin, pin)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.updateReg(reg, func(v byte) byte {
		return withDioMode(v, shift, mode)
	})
}

// GetDioMapping reads back the 2-bit mode of one of the DIO pins (0-5).
// This method is concurrent safe.
func (d *Device) GetDioMapping(pin int) (byte, error) {
	reg, shift, ok := dioField(pin)
	if !ok {
		return 0, fmt.Errorf("%w: %w (%d)", ErrPkg, ErrDIOPin, pin)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.readReg(reg)
	if err != nil {
		return 0, err
	}
	return dioMode(v, shift), nil
}

// --- Packet engine ---

// Send transmits one packet and waits for completion. The wait is a bounded
// poll of the IRQ flags with a fixed inter-poll delay; when the bound is
// reached without TxDone, the lost-packet counter is incremented and
// ErrTxTimeout is returned. The radio is put back to sleep either way.
// This method is concurrent safe.
func (d *Device) Send(p []byte) error {
	if len(p) > _MAX_PAYLOAD_BYTES {
		return fmt.Errorf("%w: payload too large (%d bytes), limit is %d", ErrPkg, len(p), _MAX_PAYLOAD_BYTES)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.setMode(OpModeStandby); err != nil {
		return err
	}
	if err := d.writeReg(_FIFO_ADDR_PTR, 0); err != nil {
		return err
	}
	if err := d.transport.WriteBuffer(_FIFO, p); err != nil {
		return err
	}
	// The length register must match the FIFO fill even in implicit mode.
	if err := d.writeReg(_PAYLOAD_LENGTH, byte(len(p))); err != nil {
		return err
	}
	if err := d.setMode(OpModeTransmit); err != nil {
		return err
	}

	done := false
	for i := 0; i < _TX_POLL_LIMIT; i++ {
		irq, err := d.readReg(_IRQ_FLAGS)
		if err != nil {
			d.setMode(OpModeSleep)
			return err
		}
		d.lastIrqFlags = irq
		if irq&IrqTxDone != 0 {
			done = true
			break
		}
		d.transport.Delay(10 * time.Millisecond)
	}
	if !done {
		d.lostPackets++
		globalLogger.Warn("Send did not complete within the poll budget")
	}

	if err := d.setMode(OpModeSleep); err != nil {
		return err
	}
	if err := d.writeReg(_IRQ_FLAGS, IrqTxDone); err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("%w: %w", ErrPkg, ErrTxTimeout)
	}
	return nil
}

// Receive copies a pending packet into buf and returns its length. It is a
// single-shot drain, not a blocking wait: with nothing pending it returns
// ErrNoPacket and leaves buf untouched. A packet whose CRC check failed
// yields ErrCRC. Payloads longer than buf are silently truncated to its
// capacity.
// This method is concurrent safe.
func (d *Device) Receive(buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	irq, err := d.readReg(_IRQ_FLAGS)
	if err != nil {
		return 0, err
	}
	d.lastIrqFlags = irq
	// Write the observed flags straight back: write-1-to-clear.
	if err := d.writeReg(_IRQ_FLAGS, irq); err != nil {
		return 0, err
	}

	if irq&IrqRxDone == 0 {
		return 0, fmt.Errorf("%w: %w", ErrPkg, ErrNoPacket)
	}
	if irq&IrqPayloadCrcError != 0 {
		return 0, fmt.Errorf("%w: %w", ErrPkg, ErrCRC)
	}

	lenReg := byte(_RX_NB_BYTES)
	if d.implicit {
		lenReg = _PAYLOAD_LENGTH
	}
	n, err := d.readReg(lenReg)
	if err != nil {
		return 0, err
	}

	if err := d.setMode(OpModeStandby); err != nil {
		return 0, err
	}

	addr, err := d.readReg(_FIFO_RX_CURRENT_ADDR)
	if err != nil {
		return 0, err
	}
	if err := d.writeReg(_FIFO_ADDR_PTR, addr); err != nil {
		return 0, err
	}

	if int(n) > len(buf) {
		n = byte(len(buf))
	}
	if err := d.transport.ReadBuffer(_FIFO, buf[:n]); err != nil {
		return 0, err
	}
	return int(n), nil
}

// PollReceived reports whether a packet is pending and whether its CRC check
// failed, without consuming the packet. A set CRC-error flag is cleared here;
// RxDone is left for Receive to clear.
// This method is concurrent safe.
func (d *Device) PollReceived() (received, crcError bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	irq, err := d.readReg(_IRQ_FLAGS)
	if err != nil {
		return false, false, err
	}
	d.lastIrqFlags = irq

	if irq&IrqRxDone == 0 {
		return false, false, nil
	}
	if irq&IrqPayloadCrcError != 0 {
		if err := d.writeReg(_IRQ_FLAGS, IrqPayloadCrcError); err != nil {
			return true, true, err
		}
		return true, true, nil
	}
	return true, false, nil
}

// GetIrqFlags reads the raw IRQ flags register without clearing anything.
// This method is concurrent safe.
func (d *Device) GetIrqFlags() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	irq, err := d.readReg(_IRQ_FLAGS)
	if err != nil {
		return 0, err
	}
	d.lastIrqFlags = irq
	return irq, nil
}

// LostPackets returns the number of sends that timed out waiting for
// completion. The counter is never reset.
// This method is concurrent safe.
func (d *Device) LostPackets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lostPackets
}

// --- Telemetry ---

// GetRSSI returns the last packet's RSSI in dBm, derived from the raw
// register value and the configured frequency band. The raw arithmetic is
// returned without clamping.
// This method is concurrent safe.
func (d *Device) GetRSSI() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.readReg(_PKT_RSSI_VALUE)
	if err != nil {
		return 0, err
	}
	return packetRSSI(raw, d.frequencyHz), nil
}

// GetSNR returns the last packet's SNR in dB. The register holds a
// two's-complement quarter-dB value.
// This method is concurrent safe.
func (d *Device) GetSNR() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.readReg(_PKT_SNR_VALUE)
	if err != nil {
		return 0, err
	}
	return packetSNR(raw), nil
}

// --- Diagnostics ---

// DumpRegisters reads registers 0x00-0x3F sequentially and logs them as hex
// rows. Best effort: the dump aborts on the first read failure.
// This method is concurrent safe.
func (d *Device) DumpRegisters() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := make([]byte, _REGISTER_COUNT)
	for i := range regs {
		v, err := d.readReg(byte(i))
		if err != nil {
			return nil, fmt.Errorf("register dump aborted at 0x%02X: %w", i, err)
		}
		regs[i] = v
	}
	for i := 0; i < len(regs); i += 16 {
		globalLogger.Debug(fmt.Sprintf("%02X: % X", i, regs[i:i+16]))
	}
	return regs, nil
}
