package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Config aggregates every tunable of the stack, one section per
// component.
type Config struct {
	Pursuit PursuitConfig `json:"pursuit"`
	Monitor MonitorConfig `json:"monitor"`
	Loop    LoopConfig    `json:"loop"`
	Sim     SimConfig     `json:"sim"`
}

// DefaultConfig returns the audited fail-safe defaults. The monitor
// distances mirror the vehicle's physical sensor suite: hard stop at
// 4 m dead ahead, caution at 2 m on the front corners and 1 m on the
// flanks.
func DefaultConfig() Config {
	return Config{
		Pursuit: PursuitConfig{
			LookaheadM:     4,
			WheelbaseM:     2.5,
			MaxSteerRad:    30 * math.Pi / 180,
			CruiseThrottle: 0.3,
			MinThrottle:    0.05,
			BrakingM:       10,
			GoalToleranceM: 5,
		},
		Monitor: MonitorConfig{
			ForwardSensors: []string{"front"},
			BlockDistanceM: 4,
			CautionDistanceM: map[string]float64{
				"front":       6,
				"front_left":  2,
				"front_right": 2,
				"left":        1,
				"right":       1,
			},
			StaleAfterMS:    150,
			CorridorRadiusM: 2,
			CorridorAheadM:  20,
			MinConfidence:   0.5,
		},
		Loop: LoopConfig{
			TickSeconds:        0.05,
			DegradedSpeedCap:   0.5,
			ClearDebounceTicks: 5,
			SettleTicks:        3,
			PenaltyRadiusM:     6,
			PenaltyFactor:      10,
			StuckEpsilonM:      1,
			StuckTicks:         100,
			ReverseDistanceM:   5,
			ReverseThrottle:    0.3,
			ThinEpsilonM:       0.25,
		},
		Sim: SimConfig{
			WheelbaseM:    2.5,
			MaxSpeedMS:    8,
			ThrottleAccel: 4,
			BrakeDecel:    8,
			SensorRangeM:  40,
			DetectRangeM:  30,
		},
	}
}

// LoadConfig reads a JSON config file on top of the defaults, so partial
// files only override the values they name.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
