package sync

import (
	"time"

	"petrocore/pkg/models"
)

const (
	EventCreated  = "specimen.created"
	EventUpdated  = "specimen.updated"
	EventDeleted  = "specimen.deleted"
	EventImported = "specimen.imported"
)

// SpecimenEvent is one line of the change feed.
type SpecimenEvent struct {
	Type  string      `json:"type"`
	ID    string      `json:"id,omitempty"`
	Kind  models.Kind `json:"kind,omitempty"`
	Code  string      `json:"code,omitempty"`
	Count int         `json:"count,omitempty"` // imported only
	At    time.Time   `json:"at"`
}

// NewEvent builds an event for a single record.
func NewEvent(typ string, s *models.Specimen) SpecimenEvent {
	ev := SpecimenEvent{Type: typ, At: time.Now().UTC()}
	if s != nil {
		ev.ID, ev.Kind, ev.Code = s.ID, s.Kind, s.Code
	}
	return ev
}

// Publisher is what writers of the catalog need from the hub.
type Publisher interface {
	Publish(ev SpecimenEvent)
}
