package ops

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hpungsan/kin/internal/config"
	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/db"
	"github.com/hpungsan/kin/internal/selection"
	"github.com/hpungsan/kin/internal/widget"
	"github.com/stretchr/testify/require"
)

// testEnv is a fully wired stack over a temp database.
type testEnv struct {
	baseDir string
	db      *sql.DB
	cfg     *config.Config
	source  *contact.StaticSource
	host    *widget.Host
}

func newTestEnv(t *testing.T, contacts ...contact.Contact) *testEnv {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.BaseDir = baseDir

	source := contact.NewStaticSource(contacts...)
	store := db.NewStore(database)
	engine := selection.NewEngine(source, store, selection.WithRand(selection.NewRand(1)))
	host := widget.NewHost(engine, selection.NewRecorder(store, nil))

	return &testEnv{baseDir: baseDir, db: database, cfg: cfg, source: source, host: host}
}

func (e *testEnv) exportPath(name string) string {
	return filepath.Join(e.baseDir, "exports", name)
}

func (e *testEnv) setCounters(t *testing.T, records ...contact.Counters) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, db.SetCounters(context.Background(), e.db, r))
	}
}

func (e *testEnv) counters(t *testing.T, id string) contact.Counters {
	t.Helper()
	c, err := db.GetCounters(context.Background(), e.db, id)
	require.NoError(t, err)
	return c
}
