package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeCommand       = "COMMAND"
	TypeCommandResult = "COMMAND_RESULT"
	TypeCancel        = "CANCEL"
	TypeView          = "VIEW"
	TypeAck           = "ACK"
	TypeSnapshot      = "SNAPSHOT"
)

// Command kinds accepted by the simulation. Player input translation and the
// AI controller both submit these; there is no privileged path.
const (
	CmdMove        = "MOVE"
	CmdAttack      = "ATTACK"
	CmdGather      = "GATHER"
	CmdBuild       = "BUILD"
	CmdTrain       = "TRAIN"
	CmdCancelBuild = "CANCEL_BUILD"
)

// Command is a requested action. Effects land on a future tick; the issuer
// observes them through entity state changes and COMMAND_RESULT events, not
// a direct return value.
type Command struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	Kind      string `json:"kind"`
	KingdomID string `json:"kingdom_id"`

	// MOVE/ATTACK/GATHER act on these units.
	UnitIDs []uint64 `json:"unit_ids,omitempty"`

	// MOVE/GATHER/BUILD target a grid cell.
	Target [2]int `json:"target,omitempty"`

	// ATTACK targets an entity; CANCEL_BUILD and TRAIN target a building.
	TargetID uint64 `json:"target_id,omitempty"`

	// BUILD names a building kind, TRAIN a unit kind.
	BuildKind string `json:"build_kind,omitempty"`
	UnitKind  string `json:"unit_kind,omitempty"`
}

// Event is a loosely typed record appended to a kingdom's event feed.
// COMMAND_RESULT events carry "ref" (command id), "ok", and on failure a
// "code" from errors.go.
type Event map[string]any

// CancelMsg withdraws a queued command by id. The issuing kingdom must match
// the one that submitted the command. Fails silently once the command has
// been admitted into a tick.
type CancelMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	CommandID       string `json:"command_id"`
	KingdomID       string `json:"kingdom_id"`
}

// AckMsg is the transport-level receipt for a COMMAND or CANCEL. It confirms
// queueing only; rule outcomes arrive later as COMMAND_RESULT events.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CommandID       string `json:"command_id,omitempty"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func CommandResult(tick uint64, ref string, ok bool, code, msg string) Event {
	ev := Event{
		"t":    tick,
		"type": TypeCommandResult,
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		ev["code"] = code
	}
	if msg != "" {
		ev["message"] = msg
	}
	return ev
}
