package widget

import (
	"time"

	"github.com/hpungsan/kin/internal/contact"
)

// View is what a surface displays: a contact card, or the empty placeholder.
type View struct {
	SurfaceID string           `json:"surface"`
	Contact   *contact.Contact `json:"contact,omitempty"`
	// Empty is set when the address book had no contacts.
	Empty bool `json:"empty"`
	// Placeholder is set when there is no photo to show.
	Placeholder bool      `json:"placeholder"`
	RenderedAt  time.Time `json:"rendered_at"`
}

// Name returns the display name, falling back to the contact id.
func (v View) Name() string {
	if v.Contact == nil {
		return ""
	}
	if v.Contact.DisplayName != "" {
		return v.Contact.DisplayName
	}
	return v.Contact.ID
}

// Sink receives every view a surface renders.
type Sink interface {
	Render(View) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(View) error

// Render implements Sink.
func (f SinkFunc) Render(v View) error {
	return f(v)
}

func emptyView(surfaceID string, at time.Time) View {
	return View{SurfaceID: surfaceID, Empty: true, Placeholder: true, RenderedAt: at}
}

func contactView(surfaceID string, c contact.Contact, at time.Time) View {
	return View{
		SurfaceID:   surfaceID,
		Contact:     &c,
		Placeholder: !c.HasPhoto(),
		RenderedAt:  at,
	}
}
