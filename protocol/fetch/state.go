package fetch

type State uint8

const (
	StateAwaitingRequest State = iota
	StateResolvingResource
	StateAwaitingResourceSend
	StateSendingRequest
	StateAwaitingResponse
	StateComplete
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingRequest:
		return "awaiting-request"
	case StateResolvingResource:
		return "resolving-resource"
	case StateAwaitingResourceSend:
		return "awaiting-resource-send"
	case StateSendingRequest:
		return "sending-request"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateComplete:
		return "complete"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further events are expected.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateClosed
}
