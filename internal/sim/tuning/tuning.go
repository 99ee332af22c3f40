package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	// Environment cycle: each of Dawn/Day/Dusk/Night lasts PhaseTicks.
	PhaseTicks        int            `yaml:"phase_ticks"`
	WeatherEveryTicks int            `yaml:"weather_every_ticks"`
	WeatherWeights    map[string]int `yaml:"weather_weights"`

	// Command admission budget per tick; excess stays queued FIFO.
	CommandBudgetPerTick int `yaml:"command_budget_per_tick"`

	AIEveryTicks       int `yaml:"ai_every_ticks"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.withDefaults(), nil
}

func (t Tuning) withDefaults() Tuning {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 5
	}
	if t.PhaseTicks <= 0 {
		t.PhaseTicks = 1500
	}
	if t.WeatherEveryTicks <= 0 {
		t.WeatherEveryTicks = 600
	}
	if len(t.WeatherWeights) == 0 {
		t.WeatherWeights = map[string]int{"CLEAR": 60, "RAIN": 20, "STORM": 10, "SNOW": 10}
	}
	if t.CommandBudgetPerTick <= 0 {
		t.CommandBudgetPerTick = 64
	}
	if t.AIEveryTicks <= 0 {
		t.AIEveryTicks = 25
	}
	if t.SnapshotEveryTicks <= 0 {
		t.SnapshotEveryTicks = 3000
	}
	return t
}

// Default returns the tuning used when no tuning.yaml is present.
func Default() Tuning {
	return Tuning{}.withDefaults()
}
