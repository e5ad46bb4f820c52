// Package hardware defines the external collaborator the core consumes.
// The core never constructs a concrete implementation; callers wire one
// in at startup (a real NAO driver, or the sim package for tests).
package hardware

import (
	"context"
	"time"
)

// SensorData is the typed payload read from the robot's sensors each
// control tick. Perception payload shapes (images, audio) are intentionally
// left to the caller-supplied types below; the core only needs the
// envelope.
type SensorData struct {
	Timestamp     time.Time
	JointAngles   map[string]float64
	JointCurrents map[string]float64
	AngularVelocity Vector3
	Accelerometer   Vector3
	FootPressure    map[string]float64 // per sensor id (e.g. "left_front_left")
	RobotIsUpright  bool
}

// Vector3 is a minimal 3D vector, shared by sensor and motion math.
type Vector3 struct{ X, Y, Z float64 }

// JointPositions maps joint name to commanded angle, radians.
type JointPositions map[string]float64

// JointStiffnesses maps joint name to commanded stiffness in [0, 1].
type JointStiffnesses map[string]float64

// LEDCommand is an opaque payload for whatever LED layout the robot
// exposes; the core never interprets it, only forwards it.
type LEDCommand map[string]interface{}

// IncomingMessage and OutgoingMessage are opaque network payloads; wire
// formats (SPL game-controller messages, inter-robot messages, the
// viewer/introspection protocol) are an external collaborator's concern,
// out of the core's scope.
type IncomingMessage []byte
type OutgoingMessage []byte

// Image is a typed camera frame; pixel format is a collaborator concern.
type Image struct {
	Timestamp time.Time
	Width     int
	Height    int
	Pixels    []byte
}

// Samples is a block of microphone audio.
type Samples struct {
	Timestamp  time.Time
	SampleRate int
	Data       []float32
}

// CameraPosition selects which of the robot's cameras to read from.
type CameraPosition int

const (
	CameraTop CameraPosition = iota
	CameraBottom
)

// Ids identifies the physical robot body and head, e.g. for calibration
// lookups.
type Ids struct {
	BodyID string
	HeadID string
}

// Paths reports filesystem locations the collaborator manages (logs,
// recordings, calibration files); the core never interprets their
// contents, only passes them through to whichever tool wants them.
type Paths struct {
	Logs        string
	Recordings  string
	Calibration string
}

// Interface is the hardware collaborator's full surface. Every method may
// be called from at most the control cycler, except GetNow, GetIds and
// GetPaths, which any cycler may call; sensor reads are only issued from
// the control cycler.
type Interface interface {
	ReadFromSensors(ctx context.Context) (SensorData, error)
	WriteToActuators(ctx context.Context, positions JointPositions, stiffnesses JointStiffnesses, leds LEDCommand) error
	ReadFromNetwork(ctx context.Context) (IncomingMessage, error)
	WriteToNetwork(ctx context.Context, msg OutgoingMessage) error
	ReadFromCamera(ctx context.Context, position CameraPosition) (Image, error)
	ReadFromMicrophones(ctx context.Context) (Samples, error)
	GetNow() time.Time
	GetIds() Ids
	GetPaths() Paths
	ShouldRecord() bool
}
