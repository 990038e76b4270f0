package monitoring

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sarchlab/bootchain/hooking"
)

// An Event is one hooked step of the handoff.
type Event struct {
	Time     time.Time `json:"time"`
	Domain   string    `json:"domain"`
	Position string    `json:"position"`
	Item     string    `json:"item"`
}

// Func records the step so that it can be listed later.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	e := Event{
		Time: time.Now(),
		Item: fmt.Sprintf("%+v", ctx.Item),
	}

	if ctx.Domain != nil {
		e.Domain = ctx.Domain.Name()
	}

	if ctx.Pos != nil {
		e.Position = ctx.Pos.Name
	}

	m.eventsLock.Lock()
	defer m.eventsLock.Unlock()

	m.events = append(m.events, e)
}

func (m *Monitor) listEvents(w http.ResponseWriter, _ *http.Request) {
	m.eventsLock.Lock()
	defer m.eventsLock.Unlock()

	events := m.events
	if events == nil {
		events = []Event{}
	}

	writeJSON(w, events)
}
