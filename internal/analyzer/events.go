package analyzer

// EventKind discriminates the tagged variants of the analyzer event stream.
type EventKind int

const (
	// EventInspectorOpened acknowledges an open request. Carries the request
	// id, the new handle and inspector id, and the inspector's current
	// configuration.
	EventInspectorOpened EventKind = iota

	// EventConfigAck acknowledges an applied inspector configuration and
	// echoes the parameter set now in effect.
	EventConfigAck

	// EventWrongKind, EventWrongObject and EventWrongHandle are protocol
	// rejections: the analyzer could not match the referenced inspector.
	EventWrongKind
	EventWrongObject
	EventWrongHandle

	// EventSamples carries a batch of demodulated complex samples.
	EventSamples

	// EventRequestError reports an asynchronous failure of an open request.
	EventRequestError
)

func (k EventKind) String() string {
	switch k {
	case EventInspectorOpened:
		return "inspector-opened"
	case EventConfigAck:
		return "config-ack"
	case EventWrongKind:
		return "wrong-kind"
	case EventWrongObject:
		return "wrong-object"
	case EventWrongHandle:
		return "wrong-handle"
	case EventSamples:
		return "samples"
	case EventRequestError:
		return "request-error"
	default:
		return "unknown"
	}
}

// Event is one inbound message from the analyzer. Only the fields relevant
// to the Kind are populated.
type Event struct {
	Kind        EventKind
	RequestID   uint32
	Handle      Handle
	InspectorID InspectorID
	Config      *Config
	Samples     []complex64
	Err         string
}
