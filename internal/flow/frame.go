package flow

import "encoding/binary"

// PX4FLOW register-protocol constants. Writing a single register byte
// starts (or continues) an integration period; a subsequent plain read
// returns the frame for that register verbatim, little-endian, with no
// framing or checksum.
const (
	// RegCombined selects the combined readout: the instantaneous frame
	// followed by the integral frame in one transfer.
	RegCombined = 0x00
	// RegIntegral selects the integral-only readout (measure register 22).
	RegIntegral = 0x16
)

// Wire sizes of the two frame layouts.
const (
	FullFrameSize     = 22
	IntegralFrameSize = 25
)

// FrameMode selects which register the driver polls. It is fixed at
// construction; the two modes are mutually exclusive.
type FrameMode uint8

const (
	// ModeIntegral reads the 25-byte integral frame after command 0x16.
	ModeIntegral FrameMode = iota
	// ModeCombined reads the 22-byte full frame plus the 25-byte integral
	// frame in a single transfer after command 0x00.
	ModeCombined
)

func (m FrameMode) String() string {
	if m == ModeCombined {
		return "combined"
	}
	return "integral"
}

// Command returns the single-byte measure command for this mode.
func (m FrameMode) Command() byte {
	if m == ModeCombined {
		return RegCombined
	}
	return RegIntegral
}

// ReadSize returns the number of bytes one collect transfer reads.
func (m FrameMode) ReadSize() int {
	if m == ModeCombined {
		return FullFrameSize + IntegralFrameSize
	}
	return IntegralFrameSize
}

// IntegralFrame is the sensor-reported accumulation of flow and gyro
// motion since the previous readout.
type IntegralFrame struct {
	FrameCountSinceLastReadout uint16
	PixelFlowXIntegral         int16 // accumulated flow around x, rad*10000
	PixelFlowYIntegral         int16 // accumulated flow around y, rad*10000
	GyroXRateIntegral          int16 // rad*10000
	GyroYRateIntegral          int16
	GyroZRateIntegral          int16
	IntegrationTimespan        uint32 // microseconds
	SonarTimestamp             uint32 // microseconds since last sonar update
	GroundDistance             int16  // millimeters, positive when valid
	GyroTemperature            int16  // celsius*100
	Quality                    uint8  // 0 bad .. 255 best
}

// FullFrame is the instantaneous (non-integrated) readout that precedes
// the integral frame in combined mode.
type FullFrame struct {
	FrameCount     uint16
	PixelFlowXSum  int16
	PixelFlowYSum  int16
	FlowCompMX     int16
	FlowCompMY     int16
	Quality        int16
	GyroXRate      int16
	GyroYRate      int16
	GyroZRate      int16
	GyroRange      uint8
	SonarTimestamp uint8
	GroundDistance int16
}

// DecodeIntegralFrame parses a 25-byte integral frame. The decode is
// pure: identical bytes always yield identical fields. The device frame
// carries no checksum, so no validation happens here; implausible bytes
// decode to implausible numbers and it is the caller's job to care.
func DecodeIntegralFrame(buf []byte) IntegralFrame {
	_ = buf[IntegralFrameSize-1]
	return IntegralFrame{
		FrameCountSinceLastReadout: binary.LittleEndian.Uint16(buf[0:2]),
		PixelFlowXIntegral:         int16(binary.LittleEndian.Uint16(buf[2:4])),
		PixelFlowYIntegral:         int16(binary.LittleEndian.Uint16(buf[4:6])),
		GyroXRateIntegral:          int16(binary.LittleEndian.Uint16(buf[6:8])),
		GyroYRateIntegral:          int16(binary.LittleEndian.Uint16(buf[8:10])),
		GyroZRateIntegral:          int16(binary.LittleEndian.Uint16(buf[10:12])),
		IntegrationTimespan:        binary.LittleEndian.Uint32(buf[12:16]),
		SonarTimestamp:             binary.LittleEndian.Uint32(buf[16:20]),
		GroundDistance:             int16(binary.LittleEndian.Uint16(buf[20:22])),
		GyroTemperature:            int16(binary.LittleEndian.Uint16(buf[22:24])),
		Quality:                    buf[24],
	}
}

// DecodeFullFrame parses a combined readout: the 22-byte full frame
// followed by the 25-byte integral frame.
func DecodeFullFrame(buf []byte) (FullFrame, IntegralFrame) {
	_ = buf[FullFrameSize+IntegralFrameSize-1]
	f := FullFrame{
		FrameCount:     binary.LittleEndian.Uint16(buf[0:2]),
		PixelFlowXSum:  int16(binary.LittleEndian.Uint16(buf[2:4])),
		PixelFlowYSum:  int16(binary.LittleEndian.Uint16(buf[4:6])),
		FlowCompMX:     int16(binary.LittleEndian.Uint16(buf[6:8])),
		FlowCompMY:     int16(binary.LittleEndian.Uint16(buf[8:10])),
		Quality:        int16(binary.LittleEndian.Uint16(buf[10:12])),
		GyroXRate:      int16(binary.LittleEndian.Uint16(buf[12:14])),
		GyroYRate:      int16(binary.LittleEndian.Uint16(buf[14:16])),
		GyroZRate:      int16(binary.LittleEndian.Uint16(buf[16:18])),
		GyroRange:      buf[18],
		SonarTimestamp: buf[19],
		GroundDistance: int16(binary.LittleEndian.Uint16(buf[20:22])),
	}
	return f, DecodeIntegralFrame(buf[FullFrameSize:])
}
