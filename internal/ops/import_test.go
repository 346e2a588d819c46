package ops

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/errors"
	"github.com/stretchr/testify/require"
)

func writeImport(t *testing.T, env *testEnv, name string, lines ...string) string {
	t.Helper()
	path := env.exportPath(name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	return path
}

const header = `{"_kin_export":true,"schema_version":"1.0","exported_at":1700000000}`

func TestImport_ModeError_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	path := writeImport(t, env, "in.jsonl",
		header,
		`{"contact_id":"a","proposed":5,"engaged":2}`,
		`{"contact_id":"b","proposed":1,"engaged":0}`,
	)

	out, err := Import(context.Background(), env.db, env.cfg, ImportInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, out.Imported)
	require.Empty(t, out.Errors)
	require.Equal(t, contact.Counters{ContactID: "a", Proposed: 5, Engaged: 2}, env.counters(t, "a"))
}

func TestImport_ModeError_CollisionRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.setCounters(t, contact.Counters{ContactID: "b", Proposed: 9})
	path := writeImport(t, env, "in.jsonl",
		header,
		`{"contact_id":"a","proposed":5,"engaged":2}`,
		`{"contact_id":"b","proposed":1,"engaged":0}`,
	)

	out, err := Import(context.Background(), env.db, env.cfg, ImportInput{Path: path, Mode: ImportModeError})
	require.Nil(t, out)
	require.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)
	kerr := err.(*errors.KinError)
	require.Equal(t, 409, kerr.Status)
	require.Equal(t, "b", kerr.Details["contact_id"])
	require.Equal(t, 3, kerr.Details["line"])

	exists, err := Counters(context.Background(), env.db, CountersInput{ContactID: "a"})
	require.NoError(t, err)
	require.False(t, exists.Exists, "mode error must be all-or-nothing")
	require.Equal(t, int64(9), env.counters(t, "b").Proposed)
}

func TestImport_ModeError_ParseErrorAborts(t *testing.T) {
	env := newTestEnv(t)
	path := writeImport(t, env, "in.jsonl",
		header,
		`{"contact_id":"a","proposed":5}`,
		`{not json`,
	)

	out, err := Import(context.Background(), env.db, env.cfg, ImportInput{Path: path})
	require.NoError(t, err)
	require.Zero(t, out.Imported)
	require.Equal(t, "PARSE_ERROR", out.Errors[0].Code)
	require.Equal(t, 3, out.Errors[0].Line)
	require.Zero(t, env.counters(t, "a").Proposed)
}

func TestImport_ModeReplace(t *testing.T) {
	env := newTestEnv(t)
	env.setCounters(t, contact.Counters{ContactID: "a", Proposed: 100, Engaged: 50})
	path := writeImport(t, env, "in.jsonl",
		header,
		`{"contact_id":"a","proposed":5,"engaged":2}`,
		`{"contact_id":"","proposed":1}`,
		`{"contact_id":"neg","proposed":-1}`,
	)

	out, err := Import(context.Background(), env.db, env.cfg, ImportInput{Path: path, Mode: ImportModeReplace})
	require.NoError(t, err)
	require.Equal(t, 1, out.Imported)
	require.Equal(t, 2, out.Skipped)
	require.Len(t, out.Errors, 2)
	require.Equal(t, contact.Counters{ContactID: "a", Proposed: 5, Engaged: 2}, env.counters(t, "a"))
}

func TestImport_ModeAdd(t *testing.T) {
	env := newTestEnv(t)
	env.setCounters(t, contact.Counters{ContactID: "a", Proposed: 10, Engaged: 1})
	path := writeImport(t, env, "in.jsonl",
		header,
		`{"contact_id":"a","proposed":5,"engaged":2}`,
		`{"contact_id":"z","proposed":1,"engaged":1}`,
	)

	out, err := Import(context.Background(), env.db, env.cfg, ImportInput{Path: path, Mode: ImportModeAdd})
	require.NoError(t, err)
	require.Equal(t, 2, out.Imported)
	require.Equal(t, contact.Counters{ContactID: "a", Proposed: 15, Engaged: 3}, env.counters(t, "a"))
	require.Equal(t, contact.Counters{ContactID: "z", Proposed: 1, Engaged: 1}, env.counters(t, "z"))
}

func TestImport_DuplicateLinesKeepLast(t *testing.T) {
	env := newTestEnv(t)
	path := writeImport(t, env, "in.jsonl",
		`{"contact_id":"a","proposed":1}`,
		`{"contact_id":"a","proposed":7}`,
	)

	out, err := Import(context.Background(), env.db, env.cfg, ImportInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 1, out.Imported)
	require.Equal(t, int64(7), env.counters(t, "a").Proposed)
}

func TestImport_RoundTrip(t *testing.T) {
	src := newTestEnv(t)
	src.setCounters(t,
		contact.Counters{ContactID: "a", Proposed: 3, Engaged: 1},
		contact.Counters{ContactID: "b", Proposed: 8, Engaged: 8},
	)
	exported, err := Export(context.Background(), src.db, src.cfg, ExportInput{Path: src.exportPath("rt.jsonl")})
	require.NoError(t, err)

	dst := newTestEnv(t)
	dst.cfg.AllowedPaths = []string{src.baseDir + string(os.PathSeparator) + "exports"}

	out, err := Import(context.Background(), dst.db, dst.cfg, ImportInput{Path: exported.Path})
	require.NoError(t, err)
	require.Equal(t, 2, out.Imported)
	require.Equal(t, src.counters(t, "b"), dst.counters(t, "b"))
}

func TestImport_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := Import(context.Background(), env.db, env.cfg, ImportInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Import(context.Background(), env.db, env.cfg, ImportInput{Path: env.exportPath("x.jsonl"), Mode: "rename"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Import(context.Background(), env.db, env.cfg, ImportInput{Path: env.exportPath("missing.jsonl")})
	require.True(t, errors.Is(err, errors.ErrFileNotFound), "got %v", err)
}
