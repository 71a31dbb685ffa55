package engine

// Ownership is the state a Message is currently in. A message is in exactly
// one of these states at any time.
type Ownership int

const (
	OwnedByUser Ownership = iota
	OwnedByFES
	InTransit
	Delivered
)

func (o Ownership) String() string {
	switch o {
	case OwnedByUser:
		return "owned"
	case OwnedByFES:
		return "in-fes"
	case InTransit:
		return "in-transit"
	case Delivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Message is the unit of scheduling and inter-module communication.
type Message struct {
	ID   uint64
	Kind string
	// Payload carries the user data. It is never copied by the engine; the
	// caller owns duplication if the model needs it.
	Payload any

	CreationTime Time
	SendingTime  Time
	ArrivalTime  Time

	SenderModuleID  ModuleID
	SenderGateID    GateID
	ArrivalModuleID ModuleID
	ArrivalGateID   GateID

	SchedulingPriority int

	// BitLength is consulted for transmission-time and bit-error
	// calculations; 0 means zero-length, a negative value means "unknown".
	BitLength   int64
	HasBitError bool

	state Ownership

	// heapIndex is this message's position in the FES heap; -1 when not
	// scheduled. Kept in sync by fesHeap's Swap/Push/Pop.
	heapIndex int
	// seq is the FES insertion sequence, assigned at Schedule time; it is
	// the final tie-breaker in FES ordering.
	seq uint64
}

// NewMessage constructs a Message owned by the caller. id must be unique
// for the lifetime of the simulation; Engine.NewMessage allocates one.
func NewMessage(id uint64, kind string, payload any, createdAt Time) *Message {
	return &Message{
		ID:           id,
		Kind:         kind,
		Payload:      payload,
		CreationTime: createdAt,
		state:        OwnedByUser,
		heapIndex:    -1,
	}
}

// Ownership reports the message's current ownership state.
func (m *Message) Ownership() Ownership { return m.state }

// Scheduled reports whether the message currently sits in the FES.
func (m *Message) Scheduled() bool { return m.heapIndex >= 0 }
