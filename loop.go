package main

import (
	"log"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// VehicleState is the pose snapshot the loop reads at the top of each
// tick. It is owned by the loop and read-only to every component.
type VehicleState struct {
	Position orb.Point
	Heading  float64 // radians
	Speed    float64 // m/s
}

// ControlCommand is one tick's actuation output.
type ControlCommand struct {
	Steering float64 // radians, clamped to the vehicle's physical range
	Throttle float64 // [-1, 1]; negative drives in reverse
	Brake    float64 // [0, 1]
}

func stopCommand() ControlCommand {
	return ControlCommand{Brake: 1}
}

func reverseCommand(throttle float64) ControlCommand {
	return ControlCommand{Throttle: -math.Abs(throttle)}
}

// The collaborator boundary. Telemetry, sensors, detections, and
// actuation all live outside this core; the loop only requires that each
// call returns promptly with fresh data or an explicit failure.
type TelemetrySource interface {
	VehicleState() (VehicleState, error)
}

type SensorSource interface {
	Snapshot() SensorSnapshot
}

type ObjectDetector interface {
	Detections() []DetectedObject
}

type ActuationSink interface {
	Apply(ControlCommand) error
}

// Collaborators bundles the external interfaces the loop reads and drives.
type Collaborators struct {
	Telemetry TelemetrySource
	Sensors   SensorSource
	Detector  ObjectDetector
	Actuator  ActuationSink
}

// LoopState is the control loop's state machine position.
type LoopState int

const (
	StatePlanning LoopState = iota
	StateFollowing
	StateDegradedFollowing
	StateBlockedStopped
	StateReversing
	StateReplanning
	StateArrived
	StateFailed
)

func (s LoopState) String() string {
	switch s {
	case StatePlanning:
		return "PLANNING"
	case StateFollowing:
		return "FOLLOWING"
	case StateDegradedFollowing:
		return "DEGRADED_FOLLOWING"
	case StateBlockedStopped:
		return "BLOCKED_STOPPED"
	case StateReversing:
		return "REVERSING"
	case StateReplanning:
		return "REPLANNING"
	case StateArrived:
		return "ARRIVED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the loop has finished, successfully or not.
func IsTerminal(s LoopState) bool {
	return s == StateArrived || s == StateFailed
}

// LoopConfig holds the state machine's policy knobs.
type LoopConfig struct {
	TickSeconds        float64 `json:"tick_seconds"`
	DegradedSpeedCap   float64 `json:"degraded_speed_cap"`
	ClearDebounceTicks int     `json:"clear_debounce_ticks"`
	SettleTicks        int     `json:"settle_ticks"`

	// Obstacle-to-edge penalty policy: edges whose segment passes within
	// PenaltyRadiusM of the obstacle estimate get their cost multiplied
	// by PenaltyFactor for the next plan only.
	PenaltyRadiusM float64 `json:"penalty_radius_m"`
	PenaltyFactor  float64 `json:"penalty_factor"`

	// Reverse recovery: a pose pinned inside StuckEpsilonM for
	// StuckTicks while commanded forward backs up ReverseDistanceM.
	StuckEpsilonM    float64 `json:"stuck_epsilon_m"`
	StuckTicks       int     `json:"stuck_ticks"`
	ReverseDistanceM float64 `json:"reverse_distance_m"`
	ReverseThrottle  float64 `json:"reverse_throttle"`

	// Waypoint thinning applied to freshly planned paths; 0 disables.
	ThinEpsilonM float64 `json:"thin_epsilon_m"`
}

// TickResult reports what one control tick decided.
type TickResult struct {
	State        LoopState
	Command      ControlCommand
	Event        ObstacleEvent
	ActuationErr error
}

// ControlLoop drives the plan / follow / replan state machine at a fixed
// tick rate. All other components are pure functions or small stateful
// helpers it orchestrates; the loop owns every transition.
type ControlLoop struct {
	graph    *Graph
	index    *EdgeIndex
	follower *PurePursuit
	monitor  *ObstacleMonitor
	cfg      LoopConfig

	telemetry TelemetrySource
	sensors   SensorSource
	detector  ObjectDetector
	actuator  ActuationSink

	state LoopState
	start int
	goal  int
	path  []orb.Point

	clearStreak int
	settleLeft  int

	stuckAnchor orb.Point
	stuckCount  int
	reverseMark orb.Point

	obstacle    orb.Point
	hasObstacle bool
}

// NewControlLoop wires the planner, follower, and monitor into a loop
// handle that will drive the vehicle from start to goal.
func NewControlLoop(g *Graph, cfg Config, collab Collaborators, start, goal int) *ControlLoop {
	return &ControlLoop{
		graph:     g,
		index:     NewEdgeIndex(g),
		follower:  NewPurePursuit(cfg.Pursuit),
		monitor:   NewObstacleMonitor(cfg.Monitor),
		cfg:       cfg.Loop,
		telemetry: collab.Telemetry,
		sensors:   collab.Sensors,
		detector:  collab.Detector,
		actuator:  collab.Actuator,
		state:     StatePlanning,
		start:     start,
		goal:      goal,
	}
}

// State returns the loop's current state machine position.
func (cl *ControlLoop) State() LoopState {
	return cl.state
}

// Path returns the waypoints currently being followed.
func (cl *ControlLoop) Path() []orb.Point {
	return cl.path
}

// Tick runs one control step: snapshot every input, classify the path
// ahead, take the transition the state machine prescribes, and emit one
// actuation command.
func (cl *ControlLoop) Tick() TickResult {
	if IsTerminal(cl.state) {
		return TickResult{State: cl.state, Command: stopCommand()}
	}

	// Snapshot all inputs before any decision logic so the whole tick
	// sees a consistent view.
	pose, err := cl.telemetry.VehicleState()
	if err != nil {
		// Without a pose nothing can be decided safely; hold the brake
		// and try again next tick.
		log.Printf("Warning: telemetry unavailable, holding: %v", err)
		return cl.emit(stopCommand(), ObstacleEvent{Classification: Degraded, Confidence: 0.5})
	}
	snapshot := cl.sensors.Snapshot()
	detections := cl.detector.Detections()

	event := cl.monitor.Classify(snapshot, detections, cl.path, pose)
	if event.HasObstacle {
		cl.obstacle = event.Obstacle
		cl.hasObstacle = true
	}

	switch cl.state {
	case StatePlanning:
		return cl.tickPlanning(event)
	case StateFollowing:
		return cl.tickFollowing(pose, event)
	case StateDegradedFollowing:
		return cl.tickDegraded(pose, event)
	case StateBlockedStopped:
		return cl.tickBlockedStopped(pose, event)
	case StateReversing:
		return cl.tickReversing(pose, event)
	case StateReplanning:
		return cl.tickReplanning(pose, event)
	default:
		return cl.emit(stopCommand(), event)
	}
}

func (cl *ControlLoop) tickPlanning(event ObstacleEvent) TickResult {
	path, ok := PlanRoute(cl.graph, cl.start, cl.goal)
	if !ok {
		log.Printf("Warning: no route from node %d to node %d", cl.start, cl.goal)
		cl.state = StateFailed
		return cl.emit(stopCommand(), event)
	}

	cl.setPath(path)
	cl.state = StateFollowing
	return cl.emit(stopCommand(), event)
}

func (cl *ControlLoop) tickFollowing(pose VehicleState, event ObstacleEvent) TickResult {
	switch event.Classification {
	case Blocked:
		return cl.enterBlockedStopped(event)
	case Degraded:
		cl.state = StateDegradedFollowing
		cl.clearStreak = 0
		return cl.followTick(pose, event, cl.cfg.DegradedSpeedCap)
	}
	return cl.followTick(pose, event, 1)
}

func (cl *ControlLoop) tickDegraded(pose VehicleState, event ObstacleEvent) TickResult {
	switch event.Classification {
	case Blocked:
		return cl.enterBlockedStopped(event)
	case Clear:
		cl.clearStreak++
		// Debounce: a single clear tick on noisy sensors is not enough
		// to resume full speed.
		if cl.clearStreak >= cl.cfg.ClearDebounceTicks {
			cl.state = StateFollowing
			return cl.followTick(pose, event, 1)
		}
	default:
		cl.clearStreak = 0
	}
	return cl.followTick(pose, event, cl.cfg.DegradedSpeedCap)
}

func (cl *ControlLoop) enterBlockedStopped(event ObstacleEvent) TickResult {
	cl.state = StateBlockedStopped
	cl.settleLeft = cl.cfg.SettleTicks
	return cl.emit(stopCommand(), event)
}

// followTick runs the shared following behaviour: stuck detection, then
// the pursuit controller, then arrival.
func (cl *ControlLoop) followTick(pose VehicleState, event ObstacleEvent, speedCap float64) TickResult {
	if cl.bumpStuck(pose) {
		cl.state = StateReversing
		cl.reverseMark = pose.Position
		return cl.emit(reverseCommand(cl.cfg.ReverseThrottle), event)
	}

	cmd, arrived := cl.follower.NextCommand(pose, cl.path, speedCap)
	if arrived {
		cl.state = StateArrived
		return cl.emit(stopCommand(), event)
	}
	return cl.emit(cmd, event)
}

func (cl *ControlLoop) tickBlockedStopped(pose VehicleState, event ObstacleEvent) TickResult {
	// Hold the brake through the settle window so a transient spike does
	// not trigger a replan.
	if cl.settleLeft > 0 {
		cl.settleLeft--
		return cl.emit(stopCommand(), event)
	}

	if event.Classification == Blocked {
		// Still nose-to-obstacle after settling: back off first so the
		// fresh plan starts with forward clearance.
		cl.state = StateReversing
		cl.reverseMark = pose.Position
		return cl.emit(reverseCommand(cl.cfg.ReverseThrottle), event)
	}

	cl.state = StateReplanning
	return cl.emit(stopCommand(), event)
}

func (cl *ControlLoop) tickReversing(pose VehicleState, event ObstacleEvent) TickResult {
	if planar.Distance(pose.Position, cl.reverseMark) >= cl.cfg.ReverseDistanceM {
		cl.state = StateReplanning
		return cl.emit(stopCommand(), event)
	}
	return cl.emit(reverseCommand(cl.cfg.ReverseThrottle), event)
}

func (cl *ControlLoop) tickReplanning(pose VehicleState, event ObstacleEvent) TickResult {
	from := cl.graph.NearestNode(pose.Position)

	// Penalty transaction: raise the costs of the edges near the
	// obstacle, plan against the penalized graph, then restore the costs
	// whatever the outcome. The detour survives in the path; the penalty
	// itself never outlives this invocation.
	var txn *penaltyTxn
	if cl.hasObstacle {
		refs := cl.index.EdgesNear(cl.obstacle, cl.cfg.PenaltyRadiusM)
		txn = cl.graph.applyPenalty(refs, cl.cfg.PenaltyFactor)
	}

	path, ok := PlanRoute(cl.graph, from, cl.goal)
	if txn != nil {
		txn.rollback()
	}
	cl.hasObstacle = false

	if !ok {
		log.Printf("Warning: replan from node %d found no route", from)
		cl.state = StateFailed
		return cl.emit(stopCommand(), event)
	}

	cl.setPath(path)
	cl.state = StateFollowing
	return cl.emit(stopCommand(), event)
}

func (cl *ControlLoop) setPath(path []orb.Point) {
	cl.path = ThinPath(path, cl.cfg.ThinEpsilonM)
	cl.follower.Reset()
	cl.stuckCount = 0
}

// bumpStuck tracks how long the pose has stayed inside a small circle
// while the loop commanded forward motion. A vehicle that does not move
// is wedged on something the sensors cannot see; reverse recovery
// unsticks it.
func (cl *ControlLoop) bumpStuck(pose VehicleState) bool {
	if cl.stuckCount == 0 || planar.Distance(pose.Position, cl.stuckAnchor) > cl.cfg.StuckEpsilonM {
		cl.stuckAnchor = pose.Position
		cl.stuckCount = 1
		return false
	}

	cl.stuckCount++
	if cl.cfg.StuckTicks > 0 && cl.stuckCount > cl.cfg.StuckTicks {
		cl.stuckCount = 0
		return true
	}
	return false
}

// emit applies the command to the actuation sink and packages the tick
// outcome. An actuation failure is reported, not retried; the next tick
// runs against fresh state either way.
func (cl *ControlLoop) emit(cmd ControlCommand, event ObstacleEvent) TickResult {
	err := cl.actuator.Apply(cmd)
	if err != nil {
		log.Printf("Warning: actuation rejected command: %v", err)
	}
	return TickResult{State: cl.state, Command: cmd, Event: event, ActuationErr: err}
}
