package master

// State is the transaction state of a Client.
//
//	Idle --submit--> AwaitingResponse
//	AwaitingResponse --frame | transport error | timeout--> Idle
//	any --Close--> Closed
type State int

const (
	Idle State = iota
	AwaitingResponse
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting-response"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
