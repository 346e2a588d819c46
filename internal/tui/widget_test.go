package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/db"
	"github.com/hpungsan/kin/internal/selection"
	"github.com/hpungsan/kin/internal/widget"
)

type testEnv struct {
	host  *widget.Host
	store *db.Store
}

func newTestEnv(t *testing.T, contacts ...contact.Contact) *testEnv {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store := db.NewStore(database)
	engine := selection.NewEngine(contact.NewStaticSource(contacts...), store, selection.WithRand(selection.NewRand(3)))
	return &testEnv{host: widget.NewHost(engine, selection.NewRecorder(store, nil)), store: store}
}

func keyMsg(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return got, cmd
}

// press sends a key and runs the command it returns, if any.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	m, cmd := apply(t, m, msg)
	if cmd == nil {
		return m
	}
	m, _ = apply(t, m, cmd())
	return m
}

func TestModel_InitialRefresh(t *testing.T) {
	env := newTestEnv(t, contact.Contact{ID: "a", DisplayName: "Ada Lovelace"})
	m := New(env.host, "", 0)
	require.Contains(t, m.View(), "picking someone")

	// With no interval Init only schedules the refresh.
	m, _ = apply(t, m, m.refresh()())
	require.NotNil(t, m.current)
	require.Equal(t, widget.StatusRendered, m.current.Status)
	require.Contains(t, m.View(), "Ada Lovelace")
	require.Contains(t, m.View(), "( AL )")
}

func TestModel_RefreshKey(t *testing.T) {
	env := newTestEnv(t,
		contact.Contact{ID: "a", DisplayName: "Ada"},
		contact.Contact{ID: "b", DisplayName: "Bob"},
	)
	m := New(env.host, "term", 0)

	var prev string
	for i := 0; i < 6; i++ {
		m = press(t, m, keyMsg("r"))
		require.False(t, m.busy)
		require.NotNil(t, m.current.Contact)
		require.NotEqual(t, prev, m.current.Contact.ID)
		prev = m.current.Contact.ID
	}
}

func TestModel_EngageKey(t *testing.T) {
	env := newTestEnv(t,
		contact.Contact{ID: "a", DisplayName: "Ada"},
		contact.Contact{ID: "b", DisplayName: "Bob"},
	)
	m := New(env.host, "", 0)
	m = press(t, m, keyMsg("r"))
	shown := m.current.Contact.ID

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_, engaged, err := env.store.GetCounters(context.Background(), shown)
	require.NoError(t, err)
	require.Equal(t, int64(1), engaged)
	require.NotEqual(t, shown, m.current.Contact.ID)
}

func TestModel_EngageIgnoredWithoutContact(t *testing.T) {
	env := newTestEnv(t)
	m := New(env.host, "", 0)
	m, cmd := apply(t, m, keyMsg("e"))
	require.Nil(t, cmd)
	require.False(t, m.busy)
}

func TestModel_EmptyAddressBook(t *testing.T) {
	env := newTestEnv(t)
	m := New(env.host, "", 0)
	m = press(t, m, keyMsg("r"))
	require.Equal(t, widget.StatusEmpty, m.current.Status)
	require.Contains(t, m.View(), "No contacts yet")
}

func TestModel_BusyDropsKeys(t *testing.T) {
	env := newTestEnv(t, contact.Contact{ID: "a", DisplayName: "Ada"})
	m := New(env.host, "", 0)
	m, cmd := apply(t, m, keyMsg("r"))
	require.NotNil(t, cmd)
	require.True(t, m.busy)

	_, cmd = apply(t, m, keyMsg("r"))
	require.Nil(t, cmd)
}

func TestModel_ErrorKeepsCard(t *testing.T) {
	env := newTestEnv(t, contact.Contact{ID: "a", DisplayName: "Ada"})
	m := New(env.host, "", 0)
	m = press(t, m, keyMsg("r"))
	before := m.current

	m, _ = apply(t, m, cycleMsg{err: context.DeadlineExceeded})
	require.Same(t, before, m.current)
	require.Contains(t, m.View(), "Ada")
	require.Contains(t, m.View(), context.DeadlineExceeded.Error())
}

func TestModel_TickSchedulesRefresh(t *testing.T) {
	env := newTestEnv(t, contact.Contact{ID: "a", DisplayName: "Ada"})
	m := New(env.host, "", time.Hour)
	require.NotNil(t, m.tick())

	_, cmd := apply(t, m, tickMsg(time.Now()))
	require.NotNil(t, cmd)

	require.Nil(t, New(env.host, "", 0).tick())
}

func TestModel_Quit(t *testing.T) {
	env := newTestEnv(t)
	m := New(env.host, "", 0)
	_, cmd := apply(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestInitials(t *testing.T) {
	require.Equal(t, "AL", initials("ada lovelace"))
	require.Equal(t, "?", initials(""))
	require.Equal(t, "ÉB", initials("élise b c"))
}

func TestModel_ViewFromOtherTrigger(t *testing.T) {
	env := newTestEnv(t, contact.Contact{ID: "a", DisplayName: "Ada"})
	m := New(env.host, "desk", 0)

	c := contact.Contact{ID: "b", DisplayName: "Bob"}
	m, _ = apply(t, m, viewMsg(widget.View{SurfaceID: "other", Contact: &c}))
	require.Nil(t, m.current)

	m, _ = apply(t, m, viewMsg(widget.View{SurfaceID: "desk", Contact: &c, Placeholder: true}))
	require.Equal(t, "b", m.current.Contact.ID)
	require.Contains(t, m.View(), "Bob")

	m, _ = apply(t, m, viewMsg(widget.View{SurfaceID: "desk", Empty: true, Placeholder: true}))
	require.Equal(t, widget.StatusEmpty, m.current.Status)
}
