package lora

// Bit-field codec for the composite SX127x configuration registers.
// Everything in this file is a pure transform between domain values and raw
// register bytes, so the layouts are testable without a transport.

// Crystal oscillator frequency and the resulting frequency-synthesis step.
// frf is a 24-bit fixed-point value with a 2^19 divider: one LSB is
// 32 MHz / 2^19 ≈ 61.035 Hz.
const _FXOSC = 32_000_000

// frfFromHz encodes a carrier frequency as the 24-bit frf word, rounding to
// the nearest synthesis step.
func frfFromHz(hz uint32) uint32 {
	return uint32((uint64(hz)<<19 + _FXOSC/2) / _FXOSC)
}

// hzFromFrf decodes a 24-bit frf word back to a frequency in Hz.
func hzFromFrf(frf uint32) uint32 {
	return uint32(uint64(frf) * _FXOSC >> 19)
}

// frfBytes splits an frf word into the three register bytes, high to low.
func frfBytes(frf uint32) (msb, mid, lsb byte) {
	return byte(frf >> 16), byte(frf >> 8), byte(frf)
}

func frfFromBytes(msb, mid, lsb byte) uint32 {
	return uint32(msb)<<16 | uint32(mid)<<8 | uint32(lsb)
}

// modemConfig1 packs the bandwidth index (bits 7:4), coding rate (bits 3:1)
// and the implicit-header flag (bit 0).
type modemConfig1 byte

func (m modemConfig1) withBandwidth(bw byte) modemConfig1 {
	return m&0x0F | modemConfig1(bw<<4)
}

func (m modemConfig1) bandwidth() byte {
	return byte(m) >> 4
}

// withCodingRate encodes a 4/d coding rate; d is clamped to [5,8].
func (m modemConfig1) withCodingRate(denominator byte) modemConfig1 {
	d := clampByte(denominator, 5, 8)
	return m&0xF1 | modemConfig1((d-4)<<1)
}

func (m modemConfig1) codingRateDenominator() byte {
	return (byte(m)&0x0E)>>1 + 4
}

func (m modemConfig1) withImplicitHeader(on bool) modemConfig1 {
	if on {
		return m | 0x01
	}
	return m & 0xFE
}

func (m modemConfig1) implicitHeader() bool {
	return m&0x01 != 0
}

// modemConfig2 packs the spreading factor (bits 7:4) and the CRC-on flag
// (bit 2).
type modemConfig2 byte

// withSpreadingFactor encodes an SF; values outside [6,12] are clamped to
// the nearest bound.
func (m modemConfig2) withSpreadingFactor(sf byte) modemConfig2 {
	sf = clampByte(sf, 6, 12)
	return m&0x0F | modemConfig2(sf<<4)
}

func (m modemConfig2) spreadingFactor() byte {
	return byte(m) >> 4
}

func (m modemConfig2) withCRC(on bool) modemConfig2 {
	if on {
		return m | 0x04
	}
	return m & 0xFB
}

func (m modemConfig2) crc() bool {
	return m&0x04 != 0
}

// detectionTuning returns the vendor RegDetectionOptimize/RegDetectionThreshold
// pair for a spreading factor. SF6 needs values distinct from SF7-12.
func detectionTuning(sf byte) (optimize, threshold byte) {
	if sf == 6 {
		return _DETECTION_OPTIMIZE_SF6, _DETECTION_THRESHOLD_SF6
	}
	return _DETECTION_OPTIMIZE_SF7, _DETECTION_THRESHOLD_SF7
}

// dioField locates the 2-bit mapping field of a DIO pin: pins 0-3 live in
// RegDioMapping1 (pin 0 at bits 7:6 down to pin 3 at bits 1:0), pins 4-5 in
// RegDioMapping2 (bits 7:6 and 5:4).
func dioField(pin int) (reg byte, shift uint, ok bool) {
	switch {
	case pin >= 0 && pin < 4:
		return _DIO_MAPPING_1, uint(6 - 2*pin), true
	case pin == 4 || pin == 5:
		return _DIO_MAPPING_2, uint(6 - 2*(pin-4)), true
	}
	return 0, 0, false
}

// withDioMode replaces one pin's 2-bit field in a mapping register value,
// preserving the rest of the register.
func withDioMode(val byte, shift uint, mode byte) byte {
	return val&^(0x03<<shift) | (mode&0x03)<<shift
}

func dioMode(val byte, shift uint) byte {
	return val >> shift & 0x03
}

// splitPreamble splits a 16-bit preamble length into its MSB/LSB registers.
func splitPreamble(length uint16) (msb, lsb byte) {
	return byte(length >> 8), byte(length)
}

func joinPreamble(msb, lsb byte) uint16 {
	return uint16(msb)<<8 | uint16(lsb)
}

// paConfigForLevel encodes a TX power level in dBm on the PA_BOOST pin;
// levels outside [2,17] are clamped.
func paConfigForLevel(level byte) byte {
	level = clampByte(level, 2, 17)
	return _PA_BOOST | (level - 2)
}

// RfMidBandThreshold separates the low-frequency port (RSSI offset 164) from
// the high-frequency port (offset 157).
const RfMidBandThreshold = 868_000_000

// packetRSSI derives a packet RSSI in dBm from the raw register value and the
// configured carrier frequency. The result is plain arithmetic, no clamping.
func packetRSSI(raw byte, frequencyHz uint32) int {
	if frequencyHz < RfMidBandThreshold {
		return int(raw) - 164
	}
	return int(raw) - 157
}

// packetSNR derives a packet SNR in dB from the raw register value. The
// register is a two's-complement quarter-dB quantity.
func packetSNR(raw byte) float64 {
	return float64(int8(raw)) * 0.25
}

func clampByte(v, lo, hi byte) byte {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
