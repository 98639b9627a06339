package progress

type Type string

const (
	TypeStatus    Type = "status"
	TypeWarning   Type = "warning"
	TypeError     Type = "error"
	TypeDone      Type = "done"
	TypeTargeting Type = "targeting"
	TypeData      Type = "data"
)

// Terminal reports whether an event of this type ends a stream.
func (t Type) Terminal() bool {
	return t == TypeDone || t == TypeError
}

type Event struct {
	Type    Type        `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Emitter is the write side handed to pipeline stages.
type Emitter interface {
	Emit(event Event)
}

func Status(message string) Event {
	return Event{Type: TypeStatus, Message: message}
}

func Warning(message string) Event {
	return Event{Type: TypeWarning, Message: message}
}

func Data(message string, data interface{}) Event {
	return Event{Type: TypeData, Message: message, Data: data}
}

func Targeting(data interface{}) Event {
	return Event{Type: TypeTargeting, Data: data}
}

func Done(data interface{}) Event {
	return Event{Type: TypeDone, Data: data}
}

func Error(message string, data interface{}) Event {
	return Event{Type: TypeError, Message: message, Data: data}
}
