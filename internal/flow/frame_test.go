package flow

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeIntegralFrame builds the 25-byte wire image of f, used to feed
// fake transports in these tests.
func encodeIntegralFrame(f IntegralFrame) []byte {
	buf := make([]byte, IntegralFrameSize)
	binary.LittleEndian.PutUint16(buf[0:2], f.FrameCountSinceLastReadout)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(f.PixelFlowXIntegral))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(f.PixelFlowYIntegral))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(f.GyroXRateIntegral))
	binary.LittleEndian.PutUint16(buf[8:10], uint16(f.GyroYRateIntegral))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(f.GyroZRateIntegral))
	binary.LittleEndian.PutUint32(buf[12:16], f.IntegrationTimespan)
	binary.LittleEndian.PutUint32(buf[16:20], f.SonarTimestamp)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(f.GroundDistance))
	binary.LittleEndian.PutUint16(buf[22:24], uint16(f.GyroTemperature))
	buf[24] = f.Quality
	return buf
}

func TestDecodeIntegralFrame(t *testing.T) {
	// Hand-built wire image: flow_x=5000, flow_y=-2500 (0xF63C),
	// gyro zero, timespan=100000us, ground=1500mm, quality=200.
	buf := []byte{
		0x02, 0x00, // frame count = 2
		0x88, 0x13, // pixel_flow_x_integral = 5000
		0x3c, 0xf6, // pixel_flow_y_integral = -2500
		0x00, 0x00, // gyro x
		0x00, 0x00, // gyro y
		0x00, 0x00, // gyro z
		0xa0, 0x86, 0x01, 0x00, // integration_timespan = 100000
		0x10, 0x27, 0x00, 0x00, // sonar_timestamp = 10000
		0xdc, 0x05, // ground_distance = 1500
		0xc4, 0x09, // gyro_temperature = 2500
		0xc8, // quality = 200
	}
	require.Len(t, buf, IntegralFrameSize)

	f := DecodeIntegralFrame(buf)
	assert.Equal(t, uint16(2), f.FrameCountSinceLastReadout)
	assert.Equal(t, int16(5000), f.PixelFlowXIntegral)
	assert.Equal(t, int16(-2500), f.PixelFlowYIntegral)
	assert.Equal(t, int16(0), f.GyroXRateIntegral)
	assert.Equal(t, int16(0), f.GyroYRateIntegral)
	assert.Equal(t, int16(0), f.GyroZRateIntegral)
	assert.Equal(t, uint32(100000), f.IntegrationTimespan)
	assert.Equal(t, uint32(10000), f.SonarTimestamp)
	assert.Equal(t, int16(1500), f.GroundDistance)
	assert.Equal(t, int16(2500), f.GyroTemperature)
	assert.Equal(t, uint8(200), f.Quality)
}

func TestDecodeIntegralFrameIsPure(t *testing.T) {
	buf := encodeIntegralFrame(IntegralFrame{
		PixelFlowXIntegral:  -30000,
		GyroZRateIntegral:   12345,
		IntegrationTimespan: 1 << 24,
		GroundDistance:      -1, // sonar reports negative when invalid
		Quality:             255,
	})

	first := DecodeIntegralFrame(buf)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DecodeIntegralFrame(buf))
	}
}

func TestDecodeFullFrame(t *testing.T) {
	combined := make([]byte, 0, FullFrameSize+IntegralFrameSize)

	full := make([]byte, FullFrameSize)
	flowXSum := int16(-120)
	binary.LittleEndian.PutUint16(full[0:2], 77)                // frame_count
	binary.LittleEndian.PutUint16(full[2:4], uint16(flowXSum)) // pixel_flow_x_sum
	binary.LittleEndian.PutUint16(full[10:12], 180)           // quality
	full[18] = 4            // gyro_range
	full[19] = 42           // sonar_timestamp
	binary.LittleEndian.PutUint16(full[20:22], 900) // ground_distance

	integral := encodeIntegralFrame(IntegralFrame{
		PixelFlowXIntegral: 100,
		Quality:            9,
	})

	combined = append(combined, full...)
	combined = append(combined, integral...)

	ff, fi := DecodeFullFrame(combined)
	assert.Equal(t, uint16(77), ff.FrameCount)
	assert.Equal(t, int16(-120), ff.PixelFlowXSum)
	assert.Equal(t, int16(180), ff.Quality)
	assert.Equal(t, uint8(4), ff.GyroRange)
	assert.Equal(t, uint8(42), ff.SonarTimestamp)
	assert.Equal(t, int16(900), ff.GroundDistance)

	assert.Equal(t, int16(100), fi.PixelFlowXIntegral)
	assert.Equal(t, uint8(9), fi.Quality)
}

func TestFrameModeWireParameters(t *testing.T) {
	assert.Equal(t, byte(RegIntegral), ModeIntegral.Command())
	assert.Equal(t, IntegralFrameSize, ModeIntegral.ReadSize())

	assert.Equal(t, byte(RegCombined), ModeCombined.Command())
	assert.Equal(t, FullFrameSize+IntegralFrameSize, ModeCombined.ReadSize())
}
