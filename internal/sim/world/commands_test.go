package world

import (
	"testing"

	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
)

// A queued command can only be withdrawn by the kingdom that submitted it,
// and internal commands not at all.
func TestWithdrawRequiresMatchingKingdom(t *testing.T) {
	w := newTestWorld(t, testConfig(2), grid.MapFile{
		ID: "queue", Width: 8, Height: 6,
		Terrain:  grassRows(8, 6),
		Kingdoms: twoKingdoms(richStock()),
		Entities: []grid.MapEntity{
			{Kind: "WORKER", Kingdom: "red", Pos: [2]int{1, 1}},
		},
	})

	id, code := w.EnqueueCommand(protocol.Command{
		Kind: protocol.CmdMove, KingdomID: "red",
		UnitIDs: []uint64{1}, Target: [2]int{5, 4},
	})
	if code != "" {
		t.Fatalf("enqueue: %s", code)
	}

	if w.WithdrawCommand(id, "blue") {
		t.Fatalf("blue withdrew red's command")
	}
	if len(w.queue) != 1 {
		t.Fatalf("queue len = %d after denied withdraw, want 1", len(w.queue))
	}
	if !w.WithdrawCommand(id, "red") {
		t.Fatalf("red could not withdraw its own command")
	}
	if w.WithdrawCommand(id, "red") {
		t.Fatalf("second withdraw of the same id should fail")
	}

	w.enqueueInternal(protocol.Command{
		Kind: protocol.CmdMove, KingdomID: "blue",
		UnitIDs: []uint64{1}, Target: [2]int{2, 2},
	})
	internalID := w.queue[0].id
	if w.WithdrawCommand(internalID, "blue") {
		t.Fatalf("internal command must not be withdrawable")
	}
}
