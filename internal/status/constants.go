package status

// Link status block layout constants.
// These values define the block layout and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers in the status block.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the link health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code (see ErrorCode).
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the link has been in error.
const SlotSecondsInError = 2

// Slots 3–10 are reserved and written as zero.

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents the state before the first poll completes.
const HealthUnknown uint16 = 0

// HealthOK means the last poll cycle succeeded.
const HealthOK uint16 = 1

// HealthError means the last poll cycle failed.
const HealthError uint16 = 2

// ---- ERROR CODES ----
// Modbus exception codes (1..255) are reported verbatim.
// Master-side failures use the range above them.

const (
	ErrorCodeGeneric   uint16 = 0x0100
	ErrorCodeTimeout   uint16 = 0x0101
	ErrorCodeTransport uint16 = 0x0102
	ErrorCodeProtocol  uint16 = 0x0103
	ErrorCodeMalformed uint16 = 0x0104
	ErrorCodeBusy      uint16 = 0x0105
	ErrorCodeClosed    uint16 = 0x0106
)
