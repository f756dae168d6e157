package lora

// --- SX127x LoRa-page Registers/Modes/Bits ---

// SX127x Register Addresses
const (
	_FIFO                 = 0x00
	_OP_MODE              = 0x01
	_FRF_MSB              = 0x06
	_FRF_MID              = 0x07
	_FRF_LSB              = 0x08
	_PA_CONFIG            = 0x09
	_LNA                  = 0x0C
	_FIFO_ADDR_PTR        = 0x0D
	_FIFO_TX_BASE_ADDR    = 0x0E
	_FIFO_RX_BASE_ADDR    = 0x0F
	_FIFO_RX_CURRENT_ADDR = 0x10
	_IRQ_FLAGS            = 0x12
	_RX_NB_BYTES          = 0x13
	_PKT_SNR_VALUE        = 0x19
	_PKT_RSSI_VALUE       = 0x1A
	_MODEM_CONFIG_1       = 0x1D
	_MODEM_CONFIG_2       = 0x1E
	_PREAMBLE_MSB         = 0x20
	_PREAMBLE_LSB         = 0x21
	_PAYLOAD_LENGTH       = 0x22
	_MODEM_CONFIG_3       = 0x26
	_DETECTION_OPTIMIZE   = 0x31
	_DETECTION_THRESHOLD  = 0x37
	_SYNC_WORD            = 0x39
	_DIO_MAPPING_1        = 0x40
	_DIO_MAPPING_2        = 0x41
	_VERSION              = 0x42
)

// Operating-mode register bits. Every mode write carries _MODE_LONG_RANGE so
// the chip stays on the LoRa modem page.
const (
	_MODE_LONG_RANGE    = 0x80
	_MODE_SLEEP         = 0x00
	_MODE_STDBY         = 0x01
	_MODE_TX            = 0x03
	_MODE_RX_CONTINUOUS = 0x05
)

// PA configuration
const _PA_BOOST = 0x80

// The SX127x SPI protocol sets bit 7 of the address byte for writes and
// clears it for reads.
const _SPI_WNR = 0x80

// IRQ Flags Register Bits (write 1 to clear)
const (
	IrqTxDone          = 0x08 // TxDone
	IrqPayloadCrcError = 0x20 // PayloadCrcError
	IrqRxDone          = 0x40 // RxDone
)

// Vendor constants for the SF6 detection tuning (RegDetectionOptimize /
// RegDetectionThreshold, Semtech datasheet table 114).
const (
	_DETECTION_OPTIMIZE_SF6  = 0xC5
	_DETECTION_OPTIMIZE_SF7  = 0xC3
	_DETECTION_THRESHOLD_SF6 = 0x0C
	_DETECTION_THRESHOLD_SF7 = 0x0A
)

const (
	_CHIP_VERSION       = 0x12
	_VERSION_POLL_LIMIT = 100
	_TX_POLL_LIMIT      = 65535
	_REGISTER_COUNT     = 0x40
	_MAX_PAYLOAD_BYTES  = 255
)
