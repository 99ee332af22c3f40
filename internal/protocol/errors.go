package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoUnavailable = "E_PROTO_UNAVAILABLE"

	// Rule/command layer. All recoverable: reported to the issuer, never
	// fatal to the tick.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrInvalidPlacement = "E_INVALID_PLACEMENT"
	ErrNoResource       = "E_NO_RESOURCE"
	ErrUnreachable      = "E_UNREACHABLE"
	ErrInvalidTarget    = "E_INVALID_TARGET"
	ErrNoPermission     = "E_NO_PERMISSION"
	ErrStale            = "E_STALE"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoUnavailable: {},
	ErrBadRequest:       {},
	ErrInvalidPlacement: {},
	ErrNoResource:       {},
	ErrUnreachable:      {},
	ErrInvalidTarget:    {},
	ErrNoPermission:     {},
	ErrStale:            {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
