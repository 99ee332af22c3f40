package world

import (
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// EntityID identifies one entity for the lifetime of a session. Ids are
// assigned monotonically and never reused, even after the entity dies.
type EntityID uint64

type OrderKind string

const (
	OrderIdle   OrderKind = "IDLE"
	OrderMove   OrderKind = "MOVE_TO"
	OrderAttack OrderKind = "ATTACK"
	OrderGather OrderKind = "GATHER"
	OrderBuild  OrderKind = "BUILD"
)

// Order is a unit's current standing instruction. Movement and combat mutate
// the unit according to it each tick.
type Order struct {
	Kind     OrderKind
	Target   grid.Point // MOVE_TO destination, GATHER site
	TargetID EntityID   // ATTACK victim, BUILD site
}

var idleOrder = Order{Kind: OrderIdle}

// Unit is a mobile entity. All stats come from the unit catalog; the struct
// carries only per-instance state.
type Unit struct {
	ID      EntityID
	Kingdom string
	Kind    string
	Pos     grid.Point
	Facing  int // index into grid.Dirs4 of the last step taken
	HP      int
	Alive   bool

	Order Order

	// Path is owned exclusively by this unit: remaining waypoints, next
	// first. Invalidated and replanned when terrain changes under it or the
	// unit is redirected.
	Path       []grid.Point
	PlannedFor grid.Point // goal the current path was computed for

	// MoveBudget accumulates milli-cost toward entering the next cell.
	MoveBudget int

	// Cooldown is ticks until the next attack is allowed.
	Cooldown int

	// Gather state: what the unit carries and time spent at the site.
	Carrying    string
	CarryAmount int
	GatherTicks int
}

// Building is a static entity occupying a rectangular footprint. Until
// Complete it is mutated by the construction system only; afterwards it
// contributes production and may fight.
type Building struct {
	ID      EntityID
	Kingdom string
	Kind    string
	Pos     grid.Point // footprint anchor (north-west cell)
	HP      int
	Alive   bool

	Complete       bool
	BuildTicksDone int
	Cooldown       int

	// Training in progress, if any.
	TrainKind      string
	TrainTicksLeft int

	// Resources held against the ledger until construction completes or is
	// cancelled.
	reservation *Reservation
}

// Kingdom is a player- or AI-controlled faction. It owns entities through
// their Kingdom field (id-based back-reference, never pointers) and one
// resource ledger.
type Kingdom struct {
	ID       string
	Name     string
	AI       bool
	Defeated bool

	Ledger *Ledger

	events []map[string]any
}

const maxKingdomEvents = 256

// AddEvent appends to the kingdom's bounded event feed. The feed is a
// reporting surface for the issuer (UI or AI); it is not simulation state
// and is excluded from digests and snapshots.
func (k *Kingdom) AddEvent(ev map[string]any) {
	k.events = append(k.events, ev)
	if len(k.events) > maxKingdomEvents {
		k.events = k.events[len(k.events)-maxKingdomEvents:]
	}
}

// Events returns a copy of the recent event feed.
func (k *Kingdom) Events() []map[string]any {
	out := make([]map[string]any, len(k.events))
	copy(out, k.events)
	return out
}
