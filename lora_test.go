package lora

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	SetLogger(nil) // silence driver logs
	os.Exit(m.Run())
}

// --- Mocks ---

type regWrite struct {
	reg, val byte
}

// fakeTransport is a scripted register file. The version register reports
// the chip id after a programmable number of reads, and the IRQ flags
// register can be told to raise TxDone after a number of reads, which is
// enough to drive every protocol sequence in the driver.
type fakeTransport struct {
	regs    [128]byte
	writes  []regWrite
	fifoIn  []byte // last buffered FIFO write
	fifoOut []byte // data returned by buffered FIFO reads

	readErr map[byte]error

	versionAfter int // version reads before reporting the chip id; 0 = never
	versionReads int
	txDoneAfter  int // IRQ reads before raising TxDone; 0 = never
	irqReads     int
	delays       int
	closed       bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{versionAfter: 1}
}

func (f *fakeTransport) Init() error { return nil }

func (f *fakeTransport) WriteRegister(reg, val byte) error {
	f.writes = append(f.writes, regWrite{reg, val})
	if reg == _IRQ_FLAGS {
		// Write-1-to-clear, like the hardware.
		f.regs[reg] &^= val
		return nil
	}
	f.regs[reg] = val
	return nil
}

func (f *fakeTransport) WriteBuffer(reg byte, data []byte) error {
	f.fifoIn = append([]byte(nil), data...)
	return nil
}

func (f *fakeTransport) ReadRegister(reg byte) (byte, error) {
	if err, ok := f.readErr[reg]; ok {
		return 0, err
	}
	switch reg {
	case _VERSION:
		f.versionReads++
		if f.versionAfter > 0 && f.versionReads >= f.versionAfter {
			return _CHIP_VERSION, nil
		}
		return 0, nil
	case _IRQ_FLAGS:
		f.irqReads++
		if f.txDoneAfter > 0 && f.irqReads >= f.txDoneAfter {
			f.regs[reg] |= IrqTxDone
		}
	}
	return f.regs[reg], nil
}

func (f *fakeTransport) ReadBuffer(reg byte, buf []byte) error {
	copy(buf, f.fifoOut)
	return nil
}

func (f *fakeTransport) Delay(d time.Duration) { f.delays++ }

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) hasWrite(reg, val byte) bool {
	for _, w := range f.writes {
		if w.reg == reg && w.val == val {
			return true
		}
	}
	return false
}

func newTestDevice(t *testing.T, ft *fakeTransport) *Device {
	t.Helper()
	dev, err := New(ft, Config{FrequencyHz: 433000000})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return dev
}

// --- Tests ---

func TestInitHandshake(t *testing.T) {
	ft := newFakeTransport()
	ft.versionAfter = 3 // chip id appears on the 3rd poll

	dev := newTestDevice(t, ft)

	if ft.versionReads != 3 {
		t.Errorf("expected 3 version polls, got %d", ft.versionReads)
	}
	if dev.Mode() != OpModeStandby {
		t.Errorf("expected standby after init, got %s", dev.Mode())
	}
	if ft.regs[_OP_MODE] != _MODE_LONG_RANGE|_MODE_STDBY {
		t.Errorf("op mode register = 0x%02X, want 0x%02X", ft.regs[_OP_MODE], _MODE_LONG_RANGE|_MODE_STDBY)
	}
	// Base setup: LNA boost, AGC, default sync word.
	if ft.regs[_LNA]&0x03 != 0x03 {
		t.Errorf("LNA boost not applied: 0x%02X", ft.regs[_LNA])
	}
	if ft.regs[_MODEM_CONFIG_3] != 0x04 {
		t.Errorf("ModemConfig3 = 0x%02X, want 0x04", ft.regs[_MODEM_CONFIG_3])
	}
	if ft.regs[_SYNC_WORD] != 0x12 {
		t.Errorf("sync word = 0x%02X, want default 0x12", ft.regs[_SYNC_WORD])
	}
	// CRC is on by default.
	if ft.regs[_MODEM_CONFIG_2]&0x04 == 0 {
		t.Error("CRC bit not set by default config")
	}
}

func TestInitHandshakeFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.versionAfter = 0 // chip id never appears

	_, err := New(ft, Config{})
	if err == nil {
		t.Fatal("expected init failure, got nil")
	}
	if !errors.Is(err, ErrChipNotFound) {
		t.Errorf("expected ErrChipNotFound, got: %v", err)
	}
	if ft.versionReads != _VERSION_POLL_LIMIT {
		t.Errorf("expected %d version polls, got %d", _VERSION_POLL_LIMIT, ft.versionReads)
	}
}

func TestSendCompletes(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	ft.writes = nil
	ft.txDoneAfter = ft.irqReads + 5 // TxDone on the 5th poll

	payload := []byte("0123456789")
	if err := dev.Send(payload); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if !bytes.Equal(ft.fifoIn, payload) {
		t.Errorf("FIFO write = %q, want %q", ft.fifoIn, payload)
	}
	if !ft.hasWrite(_FIFO_ADDR_PTR, 0) {
		t.Error("FIFO pointer not reset before the payload write")
	}
	if !ft.hasWrite(_PAYLOAD_LENGTH, 10) {
		t.Error("payload length register not written")
	}
	if !ft.hasWrite(_OP_MODE, _MODE_LONG_RANGE|_MODE_TX) {
		t.Error("radio never switched to transmit mode")
	}
	if dev.Mode() != OpModeSleep {
		t.Errorf("expected sleep after send, got %s", dev.Mode())
	}
	if dev.LostPackets() != 0 {
		t.Errorf("lost packet count = %d, want 0", dev.LostPackets())
	}
	// The TxDone flag is cleared by writing it back.
	if !ft.hasWrite(_IRQ_FLAGS, IrqTxDone) {
		t.Error("TxDone flag never cleared")
	}
	if ft.regs[_IRQ_FLAGS]&IrqTxDone != 0 {
		t.Error("TxDone flag still set after Send")
	}
}

func TestSendTimeout(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	ft.txDoneAfter = 0 // TxDone never raised
	start := ft.irqReads

	err := dev.Send([]byte("lost"))
	if !errors.Is(err, ErrTxTimeout) {
		t.Fatalf("expected ErrTxTimeout, got: %v", err)
	}
	if got := ft.irqReads - start; got != _TX_POLL_LIMIT {
		t.Errorf("expected %d IRQ polls, got %d", _TX_POLL_LIMIT, got)
	}
	if dev.LostPackets() != 1 {
		t.Errorf("lost packet count = %d, want 1", dev.LostPackets())
	}
	if dev.Mode() != OpModeSleep {
		t.Errorf("expected sleep after timed-out send, got %s", dev.Mode())
	}

	// The counter accumulates across sends and is never reset.
	err = dev.Send([]byte("lost again"))
	if !errors.Is(err, ErrTxTimeout) {
		t.Fatalf("expected ErrTxTimeout, got: %v", err)
	}
	if dev.LostPackets() != 2 {
		t.Errorf("lost packet count = %d, want 2", dev.LostPackets())
	}
}

func TestSendPayloadTooLarge(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.Send(make([]byte, 256)); err == nil {
		t.Fatal("expected error for oversized payload, got nil")
	}
}

func TestReceiveNothingPending(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	buf := bytes.Repeat([]byte{0xAA}, 16)
	_, err := dev.Receive(buf)
	if !errors.Is(err, ErrNoPacket) {
		t.Fatalf("expected ErrNoPacket, got: %v", err)
	}
	if !bytes.Equal(buf, bytes.Repeat([]byte{0xAA}, 16)) {
		t.Error("buffer was modified although nothing was received")
	}
}

func TestReceiveCRCError(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	ft.regs[_IRQ_FLAGS] = IrqRxDone | IrqPayloadCrcError

	_, err := dev.Receive(make([]byte, 16))
	if !errors.Is(err, ErrCRC) {
		t.Fatalf("expected ErrCRC, got: %v", err)
	}
	if errors.Is(err, ErrNoPacket) {
		t.Error("CRC failure must be distinct from the no-packet failure")
	}
	// The flags were observed and cleared in one step.
	if ft.regs[_IRQ_FLAGS] != 0 {
		t.Errorf("IRQ flags not cleared: 0x%02X", ft.regs[_IRQ_FLAGS])
	}
}

func TestReceiveExplicit(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	ft.regs[_IRQ_FLAGS] = IrqRxDone
	ft.regs[_RX_NB_BYTES] = 5
	ft.regs[_FIFO_RX_CURRENT_ADDR] = 0x20
	ft.fifoOut = []byte("world")
	ft.writes = nil

	buf := make([]byte, 16)
	n, err := dev.Receive(buf)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if n != 5 || string(buf[:n]) != "world" {
		t.Errorf("Receive = %d %q, want 5 %q", n, buf[:n], "world")
	}
	// The FIFO pointer must be moved to the packet's start address.
	if !ft.hasWrite(_FIFO_ADDR_PTR, 0x20) {
		t.Error("FIFO pointer not programmed to the RX current address")
	}
	if !ft.hasWrite(_OP_MODE, _MODE_LONG_RANGE|_MODE_STDBY) {
		t.Error("radio not forced to standby before the FIFO read")
	}
}

func TestReceiveTruncates(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	ft.regs[_IRQ_FLAGS] = IrqRxDone
	ft.regs[_RX_NB_BYTES] = 16
	ft.fifoOut = bytes.Repeat([]byte{0x42}, 16)

	buf := make([]byte, 8)
	n, err := dev.Receive(buf)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if n != 8 {
		t.Errorf("returned length = %d, want the buffer capacity 8", n)
	}
}

func TestReceiveImplicitLength(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.SetImplicitHeader(6); err != nil {
		t.Fatalf("SetImplicitHeader failed: %v", err)
	}

	ft.regs[_IRQ_FLAGS] = IrqRxDone
	ft.regs[_RX_NB_BYTES] = 99 // must be ignored in implicit mode
	ft.fifoOut = []byte("packet")

	buf := make([]byte, 32)
	n, err := dev.Receive(buf)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if n != 6 {
		t.Errorf("returned length = %d, want the implicit payload size 6", n)
	}
}

func TestPollReceived(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	// Nothing pending.
	received, crcErr, err := dev.PollReceived()
	if err != nil || received || crcErr {
		t.Fatalf("PollReceived = (%v, %v, %v), want (false, false, nil)", received, crcErr, err)
	}

	// Packet with a bad CRC: both flags reported, only the CRC bit cleared.
	ft.regs[_IRQ_FLAGS] = IrqRxDone | IrqPayloadCrcError
	received, crcErr, err = dev.PollReceived()
	if err != nil || !received || !crcErr {
		t.Fatalf("PollReceived = (%v, %v, %v), want (true, true, nil)", received, crcErr, err)
	}
	if ft.regs[_IRQ_FLAGS] != IrqRxDone {
		t.Errorf("expected only the CRC bit cleared, IRQ flags = 0x%02X", ft.regs[_IRQ_FLAGS])
	}

	// RxDone is still pending for Receive to consume.
	received, crcErr, err = dev.PollReceived()
	if err != nil || !received || crcErr {
		t.Fatalf("PollReceived = (%v, %v, %v), want (true, false, nil)", received, crcErr, err)
	}
}

func TestBandwidthRange(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	ft.writes = nil
	err := dev.SetBandwidth(10)
	if !errors.Is(err, ErrBandwidth) {
		t.Fatalf("expected ErrBandwidth, got: %v", err)
	}
	if len(ft.writes) != 0 {
		t.Error("rejected bandwidth still touched the registers")
	}

	if err := dev.SetBandwidth(Bandwidth250kHz); err != nil {
		t.Fatalf("SetBandwidth(8) failed: %v", err)
	}
	bw, err := dev.GetBandwidth()
	if err != nil || bw != Bandwidth250kHz {
		t.Errorf("GetBandwidth = (%d, %v), want (8, nil)", bw, err)
	}
}

func TestSpreadingFactorClampThroughDevice(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.SetSpreadingFactor(20); err != nil {
		t.Fatalf("SetSpreadingFactor failed: %v", err)
	}
	sf, err := dev.GetSpreadingFactor()
	if err != nil || sf != 12 {
		t.Errorf("GetSpreadingFactor = (%d, %v), want (12, nil)", sf, err)
	}
}

func TestSpreadingFactor6DetectionTuning(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.SetSpreadingFactor(6); err != nil {
		t.Fatalf("SetSpreadingFactor(6) failed: %v", err)
	}
	if ft.regs[_DETECTION_OPTIMIZE] != 0xC5 || ft.regs[_DETECTION_THRESHOLD] != 0x0C {
		t.Errorf("SF6 tuning = (0x%02X, 0x%02X), want (0xC5, 0x0C)",
			ft.regs[_DETECTION_OPTIMIZE], ft.regs[_DETECTION_THRESHOLD])
	}

	if err := dev.SetSpreadingFactor(7); err != nil {
		t.Fatalf("SetSpreadingFactor(7) failed: %v", err)
	}
	if ft.regs[_DETECTION_OPTIMIZE] != 0xC3 || ft.regs[_DETECTION_THRESHOLD] != 0x0A {
		t.Errorf("SF7 tuning = (0x%02X, 0x%02X), want (0xC3, 0x0A)",
			ft.regs[_DETECTION_OPTIMIZE], ft.regs[_DETECTION_THRESHOLD])
	}
}

func TestFrequencyThroughDevice(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.SetFrequency(868100000); err != nil {
		t.Fatalf("SetFrequency failed: %v", err)
	}
	hz, err := dev.GetFrequency()
	if err != nil {
		t.Fatalf("GetFrequency failed: %v", err)
	}
	diff := int64(hz) - 868100000
	if diff < -62 || diff > 62 {
		t.Errorf("GetFrequency = %d, wanted 868100000 within one synthesizer step", hz)
	}
}

func TestPreambleThroughDevice(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.SetPreambleLength(0xBEEF); err != nil {
		t.Fatalf("SetPreambleLength failed: %v", err)
	}
	if ft.regs[_PREAMBLE_MSB] != 0xBE || ft.regs[_PREAMBLE_LSB] != 0xEF {
		t.Errorf("preamble registers = %02X %02X, want BE EF", ft.regs[_PREAMBLE_MSB], ft.regs[_PREAMBLE_LSB])
	}
	n, err := dev.GetPreambleLength()
	if err != nil || n != 0xBEEF {
		t.Errorf("GetPreambleLength = (%d, %v), want (0xBEEF, nil)", n, err)
	}
}

func TestDioMappingThroughDevice(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.SetDioMapping(1, 2); err != nil {
		t.Fatalf("SetDioMapping(1, 2) failed: %v", err)
	}
	if err := dev.SetDioMapping(0, 3); err != nil {
		t.Fatalf("SetDioMapping(0, 3) failed: %v", err)
	}

	// Pin 1's field survives pin 0's write in the same register.
	m, err := dev.GetDioMapping(1)
	if err != nil || m != 2 {
		t.Errorf("GetDioMapping(1) = (%d, %v), want (2, nil)", m, err)
	}
	m, err = dev.GetDioMapping(0)
	if err != nil || m != 3 {
		t.Errorf("GetDioMapping(0) = (%d, %v), want (3, nil)", m, err)
	}

	// Pins 4-5 live in the second mapping register.
	if err := dev.SetDioMapping(5, 1); err != nil {
		t.Fatalf("SetDioMapping(5, 1) failed: %v", err)
	}
	if ft.regs[_DIO_MAPPING_2] != 0x10 {
		t.Errorf("DioMapping2 = 0x%02X, want 0x10", ft.regs[_DIO_MAPPING_2])
	}

	if err := dev.SetDioMapping(6, 0); !errors.Is(err, ErrDIOPin) {
		t.Errorf("expected ErrDIOPin for pin 6, got: %v", err)
	}
	if _, err := dev.GetDioMapping(-1); !errors.Is(err, ErrDIOPin) {
		t.Errorf("expected ErrDIOPin for pin -1, got: %v", err)
	}
}

func TestRSSIAndSNR(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft) // configured at 433 MHz

	ft.regs[_PKT_RSSI_VALUE] = 100
	rssi, err := dev.GetRSSI()
	if err != nil || rssi != -64 {
		t.Errorf("GetRSSI = (%d, %v), want (-64, nil)", rssi, err)
	}

	ft.regs[_PKT_SNR_VALUE] = 0xF8 // -8 quarter-dB steps
	snr, err := dev.GetSNR()
	if err != nil || snr != -2.0 {
		t.Errorf("GetSNR = (%v, %v), want (-2.0, nil)", snr, err)
	}
}

func TestDumpRegisters(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	ft.regs[_SYNC_WORD] = 0x12
	regs, err := dev.DumpRegisters()
	if err != nil {
		t.Fatalf("DumpRegisters failed: %v", err)
	}
	if len(regs) != _REGISTER_COUNT {
		t.Fatalf("dump length = %d, want %d", len(regs), _REGISTER_COUNT)
	}
	if regs[_SYNC_WORD] != 0x12 {
		t.Errorf("dump[0x39] = 0x%02X, want 0x12", regs[_SYNC_WORD])
	}

	// Best effort: the dump aborts on the first read failure.
	ft.readErr = map[byte]error{0x05: errors.New("bus fault")}
	if _, err := dev.DumpRegisters(); err == nil {
		t.Error("expected dump to abort on a read failure")
	}
}

func TestClose(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if ft.regs[_OP_MODE] != _MODE_LONG_RANGE|_MODE_SLEEP {
		t.Errorf("op mode register = 0x%02X, want sleep", ft.regs[_OP_MODE])
	}
	if !ft.closed {
		t.Error("transport not closed")
	}
}

func TestTransportFailurePropagates(t *testing.T) {
	ft := newFakeTransport()
	dev := newTestDevice(t, ft)

	busErr := errors.New("bus fault")
	ft.readErr = map[byte]error{_MODEM_CONFIG_1: busErr}

	if err := dev.SetCodingRate(5); !errors.Is(err, busErr) {
		t.Errorf("expected the transport failure to propagate, got: %v", err)
	}
}
