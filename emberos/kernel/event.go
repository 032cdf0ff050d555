package kernel

import "fmt"

// EventKind identifies an event. Kinds below EventNone are free for
// collaborators; the kernel reserves EventNone..EventMax and hands out the
// kinds above EventMax through AllocEvent.
type EventKind uint8

const (
	EventNone EventKind = 0x80 + iota
	EventInit
	EventPoll
	EventExit
	EventServiceRemoved
	EventContinue
	EventMsg
	EventExited
	EventTimer
	EventCom
	EventMax
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventInit:
		return "init"
	case EventPoll:
		return "poll"
	case EventExit:
		return "exit"
	case EventServiceRemoved:
		return "service-removed"
	case EventContinue:
		return "continue"
	case EventMsg:
		return "msg"
	case EventExited:
		return "exited"
	case EventTimer:
		return "timer"
	case EventCom:
		return "com"
	case EventMax:
		return "max"
	default:
		return fmt.Sprintf("event(%#x)", uint8(k))
	}
}

// Event is one delivery to a process.
//
// Data is neither copied nor owned by the kernel: the poster keeps it valid
// until delivery.
type Event struct {
	Kind EventKind
	Data any
	From PID
}

// AllocEvent returns a kind no other caller has been given.
// Main-thread only.
func (k *Kernel) AllocEvent() (EventKind, error) {
	if k.nextEvent == 0 {
		return 0, ErrNoEventKinds
	}
	ev := k.nextEvent
	k.nextEvent++
	return ev, nil
}
