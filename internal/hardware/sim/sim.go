// Package sim provides an in-memory hardware.Interface for tests and
// end-to-end scenarios. It never touches real actuators or a network
// socket; ReadFromNetwork blocks on a channel the test feeds, so
// cancellation can be exercised the same way it would be against a real
// blocking syscall.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/hulks-go/motioncore/internal/hardware"
)

// Hardware is a scriptable, concurrency-safe stand-in for a real robot.
type Hardware struct {
	mu sync.Mutex

	sensors   hardware.SensorData
	network   chan hardware.IncomingMessage
	written   []actuatorWrite
	ids       hardware.Ids
	paths     hardware.Paths
	shouldRec bool
	now       func() time.Time
}

type actuatorWrite struct {
	Positions    hardware.JointPositions
	Stiffnesses  hardware.JointStiffnesses
	LEDs         hardware.LEDCommand
	ObservedAt   time.Time
}

// New returns a simulated hardware interface seeded with upright, idle
// sensor data.
func New() *Hardware {
	return &Hardware{
		sensors: hardware.SensorData{
			Timestamp:       time.Now(),
			JointAngles:     map[string]float64{},
			JointCurrents:   map[string]float64{},
			FootPressure:    map[string]float64{},
			RobotIsUpright:  true,
		},
		network: make(chan hardware.IncomingMessage, 16),
		ids:     hardware.Ids{BodyID: "sim-body", HeadID: "sim-head"},
		paths:   hardware.Paths{Logs: "/tmp/sim/logs", Recordings: "/tmp/sim/recordings", Calibration: "/tmp/sim/calib"},
		now:     time.Now,
	}
}

// SetSensorData lets a test script the next value ReadFromSensors returns.
func (h *Hardware) SetSensorData(data hardware.SensorData) {
	h.mu.Lock()
	h.sensors = data
	h.mu.Unlock()
}

// PushNetworkMessage enqueues a message for the next ReadFromNetwork call.
func (h *Hardware) PushNetworkMessage(msg hardware.IncomingMessage) {
	h.network <- msg
}

// Written returns every actuator command issued so far, for assertions.
func (h *Hardware) Written() []actuatorWrite {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]actuatorWrite, len(h.written))
	copy(out, h.written)
	return out
}

func (h *Hardware) ReadFromSensors(ctx context.Context) (hardware.SensorData, error) {
	select {
	case <-ctx.Done():
		return hardware.SensorData{}, ctx.Err()
	default:
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sensors, nil
}

func (h *Hardware) WriteToActuators(ctx context.Context, positions hardware.JointPositions, stiffnesses hardware.JointStiffnesses, leds hardware.LEDCommand) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	h.mu.Lock()
	h.written = append(h.written, actuatorWrite{Positions: positions, Stiffnesses: stiffnesses, LEDs: leds, ObservedAt: h.now()})
	h.mu.Unlock()
	return nil
}

func (h *Hardware) ReadFromNetwork(ctx context.Context) (hardware.IncomingMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-h.network:
		return msg, nil
	}
}

func (h *Hardware) WriteToNetwork(ctx context.Context, msg hardware.OutgoingMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (h *Hardware) ReadFromCamera(ctx context.Context, position hardware.CameraPosition) (hardware.Image, error) {
	return hardware.Image{Timestamp: h.now()}, nil
}

func (h *Hardware) ReadFromMicrophones(ctx context.Context) (hardware.Samples, error) {
	return hardware.Samples{Timestamp: h.now(), SampleRate: 48000}, nil
}

func (h *Hardware) GetNow() time.Time    { return h.now() }
func (h *Hardware) GetIds() hardware.Ids { return h.ids }
func (h *Hardware) GetPaths() hardware.Paths { return h.paths }
func (h *Hardware) ShouldRecord() bool   { return h.shouldRec }

// SetShouldRecord lets a test toggle the recording flag.
func (h *Hardware) SetShouldRecord(v bool) { h.shouldRec = v }
