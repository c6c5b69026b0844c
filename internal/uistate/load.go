// Package uistate holds presentation state that is independent of I/O: the
// load status of a list, the open dropdown, the current video and the modal.
package uistate

// Phase enumerates the states of a Load.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseFailed
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseFailed:
		return "failed"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Load is exactly one of Loading, Failed(message) or Ready(data). The zero
// value is Loading.
type Load[T any] struct {
	phase   Phase
	message string
	data    T
}

// Loading returns the pending state.
func Loading[T any]() Load[T] {
	return Load[T]{phase: PhaseLoading}
}

// Failed returns the error state carrying a user-facing message.
func Failed[T any](message string) Load[T] {
	return Load[T]{phase: PhaseFailed, message: message}
}

// Ready returns the loaded state.
func Ready[T any](data T) Load[T] {
	return Load[T]{phase: PhaseReady, data: data}
}

// Phase reports which state l is in.
func (l Load[T]) Phase() Phase { return l.phase }

// Data returns the payload and whether l is Ready.
func (l Load[T]) Data() (T, bool) {
	return l.data, l.phase == PhaseReady
}

// Message returns the failure message, empty unless l is Failed.
func (l Load[T]) Message() string {
	if l.phase != PhaseFailed {
		return ""
	}
	return l.message
}

// Match calls the handler for the current state. Nil handlers are skipped.
func (l Load[T]) Match(loading func(), failed func(message string), ready func(data T)) {
	switch l.phase {
	case PhaseFailed:
		if failed != nil {
			failed(l.message)
		}
	case PhaseReady:
		if ready != nil {
			ready(l.data)
		}
	default:
		if loading != nil {
			loading()
		}
	}
}

// Render folds l into a single value, one function per state.
func Render[T, R any](l Load[T], loading func() R, failed func(string) R, ready func(T) R) R {
	switch l.phase {
	case PhaseFailed:
		return failed(l.message)
	case PhaseReady:
		return ready(l.data)
	default:
		return loading()
	}
}
