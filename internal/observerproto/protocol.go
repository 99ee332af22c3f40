package observerproto

// Version is the observer protocol version, separate from the command
// protocol.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection; may be
// re-sent to change the kingdom filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional: restrict event feeds to one kingdom.
	KingdomID string `json:"kingdom_id,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	MapID           string      `json:"map_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	Terrain         []string    `json:"terrain"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	Width      int   `json:"width"`
	Height     int   `json:"height"`
	Seed       int64 `json:"seed"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Phase   string `json:"phase"`
	Weather string `json:"weather"`

	Kingdoms  []KingdomState  `json:"kingdoms"`
	Units     []UnitState     `json:"units"`
	Buildings []BuildingState `json:"buildings"`

	Events []map[string]any `json:"events,omitempty"`
}

type KingdomState struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	AI       bool           `json:"ai,omitempty"`
	Defeated bool           `json:"defeated,omitempty"`
	Stock    map[string]int `json:"stock"`
}

type UnitState struct {
	ID      uint64 `json:"id"`
	Kingdom string `json:"kingdom"`
	Kind    string `json:"kind"`
	Pos     [2]int `json:"pos"`
	Facing  int    `json:"facing"`
	HP      int    `json:"hp"`

	Order    string `json:"order,omitempty"`
	Carrying string `json:"carrying,omitempty"`
}

type BuildingState struct {
	ID      uint64 `json:"id"`
	Kingdom string `json:"kingdom"`
	Kind    string `json:"kind"`
	Pos     [2]int `json:"pos"`
	HP      int    `json:"hp"`

	Complete bool `json:"complete"`
	// ProgressPermille is BuildTicksDone over BuildTicks for sites, 1000
	// once complete.
	ProgressPermille int    `json:"progress_permille"`
	Training         string `json:"training,omitempty"`
}
