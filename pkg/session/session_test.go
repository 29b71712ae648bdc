package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Broccolito/PilotR/pkg/response"
	"github.com/Broccolito/PilotR/pkg/state"
)

func selectTemp(t *testing.T) (*Session, string) {
	t.Helper()
	sess := New()
	info, rerr := sess.SelectDirectory(t.TempDir(), false)
	require.Nil(t, rerr)
	return sess, info.Workdir
}

func TestSelectDirectory_MissingWithoutCreate(t *testing.T) {
	sess := New()

	_, rerr := sess.SelectDirectory(filepath.Join(t.TempDir(), "nope"), false)
	require.NotNil(t, rerr)
	assert.Equal(t, response.CodeDirNotFound, rerr.Code)

	// The failed selection must leave the session untouched.
	rerr = sess.Require()
	require.NotNil(t, rerr)
	assert.Equal(t, response.CodeNoWorkdir, rerr.Code)
}

func TestSelectDirectory_CreatesMissing(t *testing.T) {
	sess := New()
	target := filepath.Join(t.TempDir(), "analysis", "run1")

	info, rerr := sess.SelectDirectory(target, true)
	require.Nil(t, rerr)

	assert.DirExists(t, info.Workdir)
	assert.DirExists(t, info.StateDir)
	assert.Equal(t, DefaultPrimaryFile, info.PrimaryFile)
	assert.FileExists(t, filepath.Join(info.StateDir, StateFileName))
}

func TestSelectDirectory_NotADir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, rerr := New().SelectDirectory(file, true)
	require.NotNil(t, rerr)
	assert.Equal(t, response.CodeNotADir, rerr.Code)
}

func TestSelectDirectory_ReplacesPriorSession(t *testing.T) {
	sess, _ := selectTemp(t)
	_, rerr := sess.SelectPrimary(createScript(t, sess, "first.R"))
	require.Nil(t, rerr)

	info, rerr := sess.SelectDirectory(t.TempDir(), false)
	require.Nil(t, rerr)

	assert.Equal(t, info.Workdir, sess.Root())
	assert.Equal(t, DefaultPrimaryFile, sess.Primary(), "primary resets on directory switch")
}

func TestRequire_WorkdirDeletedOutOfBand(t *testing.T) {
	sess, root := selectTemp(t)

	require.NoError(t, os.RemoveAll(root))

	rerr := sess.Require()
	require.NotNil(t, rerr)
	assert.Equal(t, response.CodeWorkdirMissing, rerr.Code)
}

func TestSelectPrimary(t *testing.T) {
	sess, root := selectTemp(t)

	_, rerr := sess.SelectPrimary("missing")
	require.NotNil(t, rerr)
	assert.Equal(t, response.CodeFileNotFound, rerr.Code)
	assert.Equal(t, DefaultPrimaryFile, sess.Primary())

	name := createScript(t, sess, "model.R")
	got, rerr := sess.SelectPrimary(name)
	require.Nil(t, rerr)
	assert.Equal(t, "model.R", got)
	assert.Equal(t, "model.R", sess.Primary())

	doc := state.NewStore(filepath.Join(root, StateDirName, StateFileName)).Load()
	assert.Equal(t, "model.R", doc[state.KeyPrimaryFile])
}

func TestSelectPrimary_NormalizesExtension(t *testing.T) {
	sess, _ := selectTemp(t)
	createScript(t, sess, "model.R")

	got, rerr := sess.SelectPrimary("model")
	require.Nil(t, rerr)
	assert.Equal(t, "model.R", got)
}

func TestNormalizeScriptName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"foo", "foo.R"},
		{"foo.R", "foo.R"},
		{"FOO.r", "FOO.r"},
		{"foo.csv", "foo.csv.R"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeScriptName(tt.in))
	}
}

func TestScriptPath_DefaultsToPrimary(t *testing.T) {
	sess, root := selectTemp(t)

	name, path, rerr := sess.ScriptPath("")
	require.Nil(t, rerr)
	assert.Equal(t, DefaultPrimaryFile, name)
	assert.Equal(t, filepath.Join(root, DefaultPrimaryFile), path)
}

func TestScriptPath_Unsafe(t *testing.T) {
	sess, _ := selectTemp(t)

	_, _, rerr := sess.ScriptPath("../escape")
	require.NotNil(t, rerr)
	assert.Equal(t, response.CodeUnsafePath, rerr.Code)
}

func TestGuardPath_Unsafe(t *testing.T) {
	sess, _ := selectTemp(t)

	_, rerr := sess.GuardPath("../../etc/passwd")
	require.NotNil(t, rerr)
	assert.Equal(t, response.CodeUnsafePath, rerr.Code)
}

func TestPersist_RecordsTimestamp(t *testing.T) {
	sess, root := selectTemp(t)

	sess.Persist(func(doc map[string]any) {
		doc["marker"] = "yes"
	})

	doc := state.NewStore(filepath.Join(root, StateDirName, StateFileName)).Load()
	assert.Equal(t, "yes", doc["marker"])
	assert.NotEmpty(t, doc[state.KeyUpdatedAt])
}

func TestSnapshot(t *testing.T) {
	sess := New()
	snap := sess.Snapshot()
	assert.Nil(t, snap[state.KeyWorkdir])
	assert.Equal(t, DefaultPrimaryFile, snap[state.KeyPrimaryFile])

	sess, root := selectTemp(t)
	snap = sess.Snapshot()
	assert.Equal(t, root, snap[state.KeyWorkdir])
}

func createScript(t *testing.T, sess *Session, name string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(sess.Root(), name), []byte("x = 1\n"), 0o644))
	return name
}
