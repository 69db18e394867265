package flow

// Fixed sensor characteristics reported with every flow sample, radians
// per second and meters.
const (
	MaxFlowRate       = 2.5
	MinGroundDistance = 0.7
	MaxGroundDistance = 3.0
)

// Range of the on-board sonar reported with every distance sample, meters.
const (
	DistanceMin = 0.3
	DistanceMax = 5.0
)

// Distance sensor type codes (MAVLink MAV_DISTANCE_SENSOR values).
const (
	DistanceTypeLaser      = 0
	DistanceTypeUltrasound = 1
)

// OrientationDownward is the default facing code for the sonar
// (MAVLink sensor orientation 25, downward facing).
const OrientationDownward = 25

// FlowSample is one decoded, body-frame optical flow measurement.
type FlowSample struct {
	DeviceID        string `json:"device_id"`
	TimestampSample uint64 `json:"timestamp_sample"` // µs, before decode
	Timestamp       uint64 `json:"timestamp"`        // µs, after assembly

	PixelFlow           [2]float32 `json:"pixel_flow"`  // radians
	DeltaAngle          [3]float32 `json:"delta_angle"` // radians
	DeltaAngleAvailable bool       `json:"delta_angle_available"`

	IntegrationTimespanUs uint32 `json:"integration_timespan_us"`
	Quality               uint8  `json:"quality"` // 0 bad .. 255 best

	MaxFlowRate       float32 `json:"max_flow_rate"`
	MinGroundDistance float32 `json:"min_ground_distance"`
	MaxGroundDistance float32 `json:"max_ground_distance"`
}

// DistanceSample is one sonar range measurement. Only the primary
// instance of the distance channel emits these.
type DistanceSample struct {
	DeviceID  string `json:"device_id"`
	Timestamp uint64 `json:"timestamp"` // µs

	CurrentDistance float32 `json:"current_distance"` // meters
	MinDistance     float32 `json:"min_distance"`
	MaxDistance     float32 `json:"max_distance"`
	Variance        float32 `json:"variance"`
	SignalQuality   int8    `json:"signal_quality"` // -1: unknown
	Type            uint8   `json:"type"`
	Orientation     uint8   `json:"orientation"` // MAVLink facing code
}
