package main

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SimConfig shapes the built-in simulated environment.
type SimConfig struct {
	WheelbaseM    float64 `json:"wheelbase_m"`
	MaxSpeedMS    float64 `json:"max_speed_ms"`
	ThrottleAccel float64 `json:"throttle_accel"` // m/s^2 at full throttle
	BrakeDecel    float64 `json:"brake_decel"`    // m/s^2 at full brake
	SensorRangeM  float64 `json:"sensor_range_m"`
	DetectRangeM  float64 `json:"detect_range_m"`
}

// Obstacle is a disc-shaped object placed in the simulated world.
type Obstacle struct {
	At     orb.Point
	Radius float64
	Class  string
}

// sensorBearings are the ray directions relative to the vehicle heading,
// matching the car's physical distance sensor suite.
var sensorBearings = map[string]float64{
	"front":       0,
	"front_left":  -math.Pi / 4,
	"front_right": math.Pi / 4,
	"left":        -math.Pi / 2,
	"right":       math.Pi / 2,
	"rear":        math.Pi,
}

// SimWorld is the in-process stand-in for the simulator: it owns the
// vehicle kinematics, ray-casts the distance sensors against disc
// obstacles, and applies actuation commands. It implements every
// collaborator interface the control loop consumes.
type SimWorld struct {
	cfg       SimConfig
	tick      float64 // seconds advanced per Step
	state     VehicleState
	command   ControlCommand
	obstacles []Obstacle
}

// NewSimWorld creates a simulated world with the vehicle at the given
// pose and no obstacles.
func NewSimWorld(cfg SimConfig, tickSeconds float64, at orb.Point, heading float64) *SimWorld {
	return &SimWorld{
		cfg:  cfg,
		tick: tickSeconds,
		state: VehicleState{
			Position: at,
			Heading:  heading,
		},
	}
}

// AddObstacle places a disc obstacle in the world.
func (w *SimWorld) AddObstacle(obs Obstacle) {
	w.obstacles = append(w.obstacles, obs)
}

// ClearObstacles removes every obstacle.
func (w *SimWorld) ClearObstacles() {
	w.obstacles = nil
}

// Collaborators returns the world wired up as the loop's collaborators.
func (w *SimWorld) Collaborators() Collaborators {
	return Collaborators{
		Telemetry: w,
		Sensors:   w,
		Detector:  w,
		Actuator:  w,
	}
}

// VehicleState implements TelemetrySource.
func (w *SimWorld) VehicleState() (VehicleState, error) {
	return w.state, nil
}

// Snapshot implements SensorSource: one fresh ray-cast per named sensor.
func (w *SimWorld) Snapshot() SensorSnapshot {
	snap := make(SensorSnapshot, len(sensorBearings))
	for name, bearing := range sensorBearings {
		snap[name] = SensorReading{Distance: w.rayDistance(w.state.Heading + bearing)}
	}
	return snap
}

// Detections implements ObjectDetector: every obstacle inside detection
// range, reported at its true position with full confidence.
func (w *SimWorld) Detections() []DetectedObject {
	var out []DetectedObject
	for _, obs := range w.obstacles {
		if planar.Distance(w.state.Position, obs.At) > w.cfg.DetectRangeM {
			continue
		}
		out = append(out, DetectedObject{
			Position:   obs.At,
			Class:      obs.Class,
			Confidence: 1,
		})
	}
	return out
}

// Apply implements ActuationSink. The command takes effect on the next
// Step.
func (w *SimWorld) Apply(cmd ControlCommand) error {
	w.command = cmd
	return nil
}

// Step advances the kinematic bicycle model by one tick under the last
// applied command.
func (w *SimWorld) Step() {
	dt := w.tick
	cmd := w.command

	target := cmd.Throttle * w.cfg.MaxSpeedMS
	if cmd.Brake > 0 {
		target = 0
	}

	speed := w.state.Speed
	switch {
	case speed < target:
		speed = math.Min(target, speed+w.cfg.ThrottleAccel*dt)
	case speed > target:
		decel := w.cfg.ThrottleAccel
		if cmd.Brake > 0 {
			decel = cmd.Brake * w.cfg.BrakeDecel
		}
		speed = math.Max(target, speed-decel*dt)
	}
	w.state.Speed = speed

	if w.cfg.WheelbaseM > 0 && speed != 0 {
		w.state.Heading = normalizeAngle(w.state.Heading + speed/w.cfg.WheelbaseM*math.Tan(cmd.Steering)*dt)
	}
	w.state.Position = orb.Point{
		w.state.Position.X() + speed*math.Cos(w.state.Heading)*dt,
		w.state.Position.Y() + speed*math.Sin(w.state.Heading)*dt,
	}
}

// rayDistance casts a ray from the vehicle and returns the distance to
// the first obstacle edge, capped at the sensor range.
func (w *SimWorld) rayDistance(angle float64) float64 {
	dir := orb.Point{math.Cos(angle), math.Sin(angle)}
	best := w.cfg.SensorRangeM
	for _, obs := range w.obstacles {
		if d, hit := rayCircle(w.state.Position, dir, obs.At, obs.Radius); hit && d < best {
			best = d
		}
	}
	return best
}

// rayCircle intersects a unit-direction ray with a circle, returning the
// distance to the nearest intersection ahead of the origin.
func rayCircle(origin, dir, center orb.Point, radius float64) (float64, bool) {
	ox := center.X() - origin.X()
	oy := center.Y() - origin.Y()

	proj := ox*dir.X() + oy*dir.Y()
	if proj < 0 {
		return 0, false
	}

	perpSq := ox*ox + oy*oy - proj*proj
	if perpSq > radius*radius {
		return 0, false
	}

	d := proj - math.Sqrt(radius*radius-perpSq)
	if d < 0 {
		d = 0
	}
	return d, true
}
