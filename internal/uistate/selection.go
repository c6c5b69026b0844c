package uistate

import "sync"

// ModalKind identifies which dialog is open.
type ModalKind int

const (
	ModalNone ModalKind = iota
	ModalEditVideo
	ModalEditUser
	ModalConfirmDelete
)

func (k ModalKind) String() string {
	switch k {
	case ModalEditVideo:
		return "edit-video"
	case ModalEditUser:
		return "edit-user"
	case ModalConfirmDelete:
		return "confirm-delete"
	default:
		return "none"
	}
}

// Modal is the open dialog and the record it was opened for.
type Modal struct {
	Kind    ModalKind
	Payload any
}

// Open reports whether a dialog is showing.
func (m Modal) Open() bool { return m.Kind != ModalNone }

// Selection tracks the current video, the single open dropdown and the
// single open modal. It performs no I/O.
type Selection struct {
	mu       sync.Mutex
	current  string
	dropdown string
	modal    Modal
}

// NewSelection returns a Selection with nothing selected or open.
func NewSelection() *Selection {
	return &Selection{}
}

// Open shows the dropdown for id, closing any other.
func (s *Selection) Open(id string) {
	s.mu.Lock()
	s.dropdown = id
	s.mu.Unlock()
}

// Toggle closes the dropdown if id is the open one, otherwise opens id.
func (s *Selection) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropdown == id {
		s.dropdown = ""
		return
	}
	s.dropdown = id
}

// Close hides the open dropdown.
func (s *Selection) Close() {
	s.mu.Lock()
	s.dropdown = ""
	s.mu.Unlock()
}

// OutsideClick handles a click landing outside every dropdown.
func (s *Selection) OutsideClick() {
	s.Close()
}

// OpenID returns the open dropdown id, empty when closed.
func (s *Selection) OpenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropdown
}

// Select makes id the current video.
func (s *Selection) Select(id string) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

// Current returns the current video id, empty when none.
func (s *Selection) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// InitCurrent picks the current video after a list load: deepLink when the
// list contains it, else the first id, else none.
func (s *Selection) InitCurrent(ids []string, deepLink string) string {
	pick := ""
	if deepLink != "" {
		for _, id := range ids {
			if id == deepLink {
				pick = id
				break
			}
		}
	}
	if pick == "" && len(ids) > 0 {
		pick = ids[0]
	}

	s.mu.Lock()
	s.current = pick
	s.mu.Unlock()
	return pick
}

// Forget drops any reference to a removed record.
func (s *Selection) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == id {
		s.current = ""
	}
	if s.dropdown == id {
		s.dropdown = ""
	}
}

// OpenModal shows a dialog, replacing any open one and discarding its payload.
func (s *Selection) OpenModal(kind ModalKind, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == ModalNone {
		s.modal = Modal{}
		return
	}
	s.modal = Modal{Kind: kind, Payload: payload}
}

// CloseModal hides the dialog and discards its payload.
func (s *Selection) CloseModal() {
	s.mu.Lock()
	s.modal = Modal{}
	s.mu.Unlock()
}

// Modal returns the open dialog.
func (s *Selection) Modal() Modal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modal
}
