package world

import (
	"testing"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

func aiBaseView() AIView {
	return AIView{
		KingdomID: "blue",
		Stock:     map[string]int{"GOLD": 1000, "WOOD": 500, "STONE": 500, "FOOD": 1000},
		Buildings: []AIBuilding{
			{ID: 1, Kind: "STONEKEEP", Pos: grid.Point{X: 5, Y: 5}, Complete: true},
		},
		GatherSites: map[string]grid.Point{
			"WOOD":  {X: 2, Y: 2},
			"STONE": {X: 8, Y: 8},
		},
		BuildSpots: map[string]grid.Point{
			"WOODCUTTER": {X: 3, Y: 5},
			"QUARRY":     {X: 7, Y: 5},
			"FARM":       {X: 5, Y: 8},
			"BARRACKS":   {X: 8, Y: 5},
		},
	}
}

func findCmd(cmds []protocol.Command, kind string) (protocol.Command, bool) {
	for _, c := range cmds {
		if c.Kind == kind {
			return c, true
		}
	}
	return protocol.Command{}, false
}

func TestPlanTrainsWorkersBelowGoal(t *testing.T) {
	cats := testCatalogs(t)
	v := aiBaseView()
	v.Units = []AIUnit{
		{ID: 2, Kind: "WORKER", Pos: grid.Point{X: 4, Y: 4}},
	}
	cmds := PlanCommands(cats, v)
	cmd, ok := findCmd(cmds, protocol.CmdTrain)
	if !ok {
		t.Fatalf("expected a TRAIN command, got %+v", cmds)
	}
	if cmd.UnitKind != "WORKER" || cmd.TargetID != 1 {
		t.Fatalf("train command wrong: %+v", cmd)
	}

	// At the goal, or while the keep is busy, no more workers.
	v.Units = []AIUnit{
		{ID: 2, Kind: "WORKER"}, {ID: 3, Kind: "WORKER"}, {ID: 4, Kind: "WORKER"},
	}
	if cmd, ok := findCmd(PlanCommands(cats, v), protocol.CmdTrain); ok && cmd.UnitKind == "WORKER" {
		t.Fatalf("should stop training at the worker goal: %+v", cmd)
	}
	v.Units = v.Units[:1]
	v.Buildings[0].Training = true
	if cmd, ok := findCmd(PlanCommands(cats, v), protocol.CmdTrain); ok && cmd.UnitKind == "WORKER" {
		t.Fatalf("should not queue behind an active training slot: %+v", cmd)
	}
}

// Idle workers alternate wood and stone by unit id parity.
func TestPlanAssignsGatherByParity(t *testing.T) {
	cats := testCatalogs(t)
	v := aiBaseView()
	v.Units = []AIUnit{
		{ID: 2, Kind: "WORKER", Idle: true},
		{ID: 3, Kind: "WORKER", Idle: true},
		{ID: 4, Kind: "WORKER", Idle: false},
	}
	var gathers []protocol.Command
	for _, c := range PlanCommands(cats, v) {
		if c.Kind == protocol.CmdGather {
			gathers = append(gathers, c)
		}
	}
	if len(gathers) != 2 {
		t.Fatalf("want gather orders for the 2 idle workers, got %d", len(gathers))
	}
	if gathers[0].UnitIDs[0] != 2 || gathers[0].Target != [2]int{2, 2} {
		t.Fatalf("even id should cut wood: %+v", gathers[0])
	}
	if gathers[1].UnitIDs[0] != 3 || gathers[1].Target != [2]int{8, 8} {
		t.Fatalf("odd id should break stone: %+v", gathers[1])
	}

	// With no stone site the odd worker falls back to wood.
	delete(v.GatherSites, "STONE")
	for _, c := range PlanCommands(cats, v) {
		if c.Kind == protocol.CmdGather && c.UnitIDs[0] == 3 && c.Target != [2]int{2, 2} {
			t.Fatalf("odd worker should fall back to wood: %+v", c)
		}
	}
}

// Expansion builds the first missing kind it can place and afford, one per
// pass.
func TestPlanBuildsFirstMissingAffordable(t *testing.T) {
	cats := testCatalogs(t)
	v := aiBaseView()

	cmd, ok := findCmd(PlanCommands(cats, v), protocol.CmdBuild)
	if !ok || cmd.BuildKind != "WOODCUTTER" {
		t.Fatalf("first expansion should be the woodcutter: %+v", cmd)
	}

	v.Buildings = append(v.Buildings, AIBuilding{ID: 5, Kind: "WOODCUTTER", Complete: true})
	cmd, ok = findCmd(PlanCommands(cats, v), protocol.CmdBuild)
	if !ok || cmd.BuildKind != "QUARRY" {
		t.Fatalf("next expansion should be the quarry: %+v", cmd)
	}

	// Broke kingdoms skip what they cannot afford.
	v.Stock = map[string]int{"WOOD": 25}
	if cmd, ok := findCmd(PlanCommands(cats, v), protocol.CmdBuild); ok {
		t.Fatalf("nothing is affordable on 25 wood: %+v", cmd)
	}
}

// With a full army and a visible enemy keep, idle soldiers march.
func TestPlanMarchesAtArmyGoal(t *testing.T) {
	cats := testCatalogs(t)
	v := aiBaseView()
	v.Buildings = append(v.Buildings, AIBuilding{ID: 6, Kind: "BARRACKS", Complete: true})
	v.EnemyBuildings = []AIBuilding{
		{ID: 30, Kind: "STOCKPILE", Pos: grid.Point{X: 20, Y: 20}},
		{ID: 31, Kind: "STONEKEEP", Pos: grid.Point{X: 22, Y: 20}},
	}
	for i := 0; i < aiArmyGoal; i++ {
		v.Units = append(v.Units, AIUnit{ID: uint64(10 + i), Kind: "SWORDSMAN", Idle: true})
	}

	cmds := PlanCommands(cats, v)
	cmd, ok := findCmd(cmds, protocol.CmdAttack)
	if !ok {
		t.Fatalf("expected a march order, got %+v", cmds)
	}
	if cmd.TargetID != 31 {
		t.Fatalf("march should target the enemy keep, got %d", cmd.TargetID)
	}
	if len(cmd.UnitIDs) != aiArmyGoal {
		t.Fatalf("all idle soldiers should march, got %d", len(cmd.UnitIDs))
	}
	// No more swordsmen once the army goal is met.
	if c, ok := findCmd(cmds, protocol.CmdTrain); ok && c.UnitKind == "SWORDSMAN" {
		t.Fatalf("army is at goal, no further training: %+v", c)
	}
}

// Intruders near the keep preempt everything else for the idle soldiers.
func TestPlanDefendsKeep(t *testing.T) {
	cats := testCatalogs(t)
	v := aiBaseView()
	v.Units = []AIUnit{
		{ID: 7, Kind: "SWORDSMAN", Pos: grid.Point{X: 5, Y: 6}, Idle: true},
	}
	v.Enemies = []AIUnit{
		{ID: 40, Kind: "SWORDSMAN", Pos: grid.Point{X: 9, Y: 5}},
		{ID: 41, Kind: "SWORDSMAN", Pos: grid.Point{X: 7, Y: 5}},
	}
	cmds := PlanCommands(cats, v)
	cmd, ok := findCmd(cmds, protocol.CmdAttack)
	if !ok {
		t.Fatalf("expected a defense order, got %+v", cmds)
	}
	if cmd.TargetID != 41 {
		t.Fatalf("defense should pick the nearest intruder, got %d", cmd.TargetID)
	}

	// Distant enemies are ignored.
	v.Enemies = []AIUnit{{ID: 40, Kind: "SWORDSMAN", Pos: grid.Point{X: 30, Y: 30}}}
	if cmd, ok := findCmd(PlanCommands(cats, v), protocol.CmdAttack); ok {
		t.Fatalf("out-of-radius enemy should be ignored: %+v", cmd)
	}
}
