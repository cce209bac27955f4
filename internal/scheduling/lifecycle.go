package scheduling

import (
	"strings"
	"time"
	"unicode/utf8"

	"tapbook/internal/domain"
)

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDecline Action = "decline"
	// ActionCancel is a customer cancelling their own appointment.
	ActionCancel Action = "cancel"
	// ActionProviderCancel is the provider's batch cancellation over a date range.
	ActionProviderCancel Action = "provider_cancel"
	ActionComplete       Action = "complete"
)

type ActorKind string

const (
	ActorCustomer ActorKind = "customer"
	ActorProvider ActorKind = "provider"
	ActorSystem   ActorKind = "system"
)

type Actor struct {
	Kind   ActorKind
	UserID int64
}

func Customer(id int64) Actor { return Actor{Kind: ActorCustomer, UserID: id} }
func Provider(id int64) Actor { return Actor{Kind: ActorProvider, UserID: id} }
func System() Actor           { return Actor{Kind: ActorSystem} }

const (
	MinNoteLength        = 3
	ProviderCancelReason = "Cancelled by the provider"
)

type rule struct {
	from  []domain.AppointmentStatus
	to    domain.AppointmentStatus
	actor ActorKind
	note  bool
}

var rules = map[Action]rule{
	ActionConfirm:        {from: []domain.AppointmentStatus{domain.StatusPending}, to: domain.StatusConfirmed, actor: ActorProvider},
	ActionDecline:        {from: []domain.AppointmentStatus{domain.StatusPending}, to: domain.StatusDeclined, actor: ActorProvider, note: true},
	ActionCancel:         {from: []domain.AppointmentStatus{domain.StatusPending, domain.StatusConfirmed}, to: domain.StatusCancelled, actor: ActorCustomer, note: true},
	ActionProviderCancel: {from: []domain.AppointmentStatus{domain.StatusPending, domain.StatusConfirmed}, to: domain.StatusCancelled, actor: ActorProvider},
	ActionComplete:       {from: []domain.AppointmentStatus{domain.StatusConfirmed}, to: domain.StatusCompleted, actor: ActorSystem},
}

// Transition decides the next status of a for action. It never mutates a.
// Authorization is checked first, then the source status, then the note.
func Transition(a *domain.Appointment, action Action, actor Actor, note string, now time.Time) (domain.AppointmentStatus, error) {
	r, ok := rules[action]
	if !ok {
		return a.Status, ErrInvalidTransition
	}
	if !authorized(a, r.actor, actor) {
		return a.Status, ErrForbidden
	}
	if !statusIn(a.Status, r.from) {
		return a.Status, ErrInvalidTransition
	}
	if r.note && !ValidNote(note) {
		return a.Status, ErrNoteRequired
	}
	if action == ActionComplete && a.Slot.End.After(now) {
		return a.Status, ErrNotDue
	}
	return r.to, nil
}

// CanReschedule reports whether the slot of an appointment in status s may still move.
func CanReschedule(s domain.AppointmentStatus) bool {
	return s.Blocking()
}

func ValidNote(note string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(note)) >= MinNoteLength
}

func authorized(a *domain.Appointment, want ActorKind, actor Actor) bool {
	if actor.Kind != want {
		return false
	}
	switch want {
	case ActorCustomer:
		return actor.UserID == a.CustomerID
	case ActorProvider:
		return actor.UserID == a.ProviderID
	default:
		return true
	}
}

func statusIn(s domain.AppointmentStatus, set []domain.AppointmentStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
