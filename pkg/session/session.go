// Package session owns the working-directory lifecycle: selecting or
// creating the directory, the reserved state subdirectory beneath it, and
// the currently selected primary script file.
package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Broccolito/PilotR/pkg/paths"
	"github.com/Broccolito/PilotR/pkg/response"
	"github.com/Broccolito/PilotR/pkg/state"
)

const (
	// DefaultPrimaryFile is the script selected after a directory switch.
	DefaultPrimaryFile = "agent.R"

	// StateDirName is the reserved subdirectory holding persisted state.
	StateDirName = ".pilotr"

	// StateFileName is the state document inside StateDirName.
	StateFileName = "state.json"
)

// Session is the active working-directory context. Selecting a new
// directory replaces all fields together; a failed selection leaves the
// prior session untouched.
type Session struct {
	root     string
	stateDir string
	store    *state.Store
	primary  string
}

func New() *Session {
	return &Session{primary: DefaultPrimaryFile}
}

// Info describes a freshly selected working directory.
type Info struct {
	Workdir     string `json:"workdir"`
	StateDir    string `json:"state_dir"`
	PrimaryFile string `json:"primary_file"`
}

// SelectDirectory resolves path, optionally creating it, and atomically
// swaps the session over to it. The reserved state subdirectory is
// ensured and the state document updated to record the switch.
func (s *Session) SelectDirectory(path string, create bool) (*Info, *response.Error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, response.Errf(response.CodeSetDirError, "failed to resolve %s: %v", path, err)
	}

	root, err := paths.Canonicalize(expanded)
	if err != nil {
		return nil, response.Errf(response.CodeSetDirError, "failed to resolve %s: %v", path, err)
	}

	fi, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		if !create {
			return nil, response.Errf(response.CodeDirNotFound, "directory %s does not exist", path).
				WithHints("Set create=true to create the directory", "Check the path is correct")
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, response.Errf(response.CodeSetDirError, "failed to create directory: %v", err)
		}
		slog.Info("Created directory", "path", root)
	case err != nil:
		return nil, response.Errf(response.CodeSetDirError, "failed to stat %s: %v", path, err)
	case !fi.IsDir():
		return nil, response.Errf(response.CodeNotADir, "path %s exists but is not a directory", path)
	}

	// Re-canonicalize now that the directory exists so symlinked roots
	// compare equal in later containment checks.
	root, err = paths.Canonicalize(root)
	if err != nil {
		return nil, response.Errf(response.CodeSetDirError, "failed to resolve %s: %v", path, err)
	}

	stateDir := filepath.Join(root, StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, response.Errf(response.CodeSetDirError, "failed to create state directory: %v", err)
	}

	s.root = root
	s.stateDir = stateDir
	s.store = state.NewStore(filepath.Join(stateDir, StateFileName))
	s.primary = DefaultPrimaryFile

	s.Persist(func(doc map[string]any) {
		doc[state.KeyWorkdir] = s.root
		doc[state.KeyPrimaryFile] = s.primary
	})

	slog.Info("Working directory set", "workdir", s.root)
	return &Info{Workdir: s.root, StateDir: s.stateDir, PrimaryFile: s.primary}, nil
}

// Require verifies that a working directory is selected and still exists
// on disk. It is re-checked on every operation because the directory can
// be deleted out-of-band between calls.
func (s *Session) Require() *response.Error {
	if s.root == "" {
		return response.Errf(response.CodeNoWorkdir, "Working directory not set. Use set_workdir first.").
			WithHints("Call set_workdir with a directory path")
	}
	if fi, err := os.Stat(s.root); err != nil || !fi.IsDir() {
		return response.Errf(response.CodeWorkdirMissing, "Working directory %s no longer exists", s.root).
			WithHints("Recreate or set a new working directory")
	}
	return nil
}

// SelectPrimary points the session at an existing script file.
func (s *Session) SelectPrimary(filename string) (string, *response.Error) {
	name, path, rerr := s.ScriptPath(filename)
	if rerr != nil {
		return "", rerr
	}
	if _, err := os.Stat(path); err != nil {
		return "", response.Errf(response.CodeFileNotFound, "File %s does not exist", name).
			WithHints("Create the file first with create_R_file", "Check the filename is correct")
	}

	s.primary = name
	s.Persist(func(doc map[string]any) {
		doc[state.KeyPrimaryFile] = name
	})

	slog.Info("Primary file set", "filename", name)
	return name, nil
}

// Root returns the canonical working directory, or "" when unset.
func (s *Session) Root() string { return s.root }

// Primary returns the currently selected script filename.
func (s *Session) Primary() string { return s.primary }

// SetPrimary repoints the primary file without persistence. Used by
// rename, which folds the change into its own state update.
func (s *Session) SetPrimary(name string) { s.primary = name }

// NormalizeScriptName appends the default script extension unless the
// name already carries one, accepting either case.
func NormalizeScriptName(name string) string {
	if strings.HasSuffix(name, ".R") || strings.HasSuffix(name, ".r") {
		return name
	}
	return name + ".R"
}

// ScriptPath normalizes a script filename and guards the resulting path.
// An empty filename selects the primary file. It returns the normalized
// name and the absolute path.
func (s *Session) ScriptPath(filename string) (name, path string, rerr *response.Error) {
	if filename == "" {
		filename = s.primary
	}
	name = NormalizeScriptName(filename)
	path, err := paths.Resolve(s.root, name)
	if err != nil {
		return "", "", response.Errf(response.CodeUnsafePath, "File path %s is outside working directory", filename)
	}
	return name, path, nil
}

// GuardPath resolves an arbitrary caller-supplied name against the
// session root without extension normalization.
func (s *Session) GuardPath(name string) (string, *response.Error) {
	path, err := paths.Resolve(s.root, name)
	if err != nil {
		return "", response.Errf(response.CodeUnsafePath, "File path %s is outside working directory", name)
	}
	return path, nil
}

// Persist applies mutate to the loaded state document, stamps updated_at,
// and saves it. Saving is best-effort: a failure is logged but never
// surfaced to the caller, so the on-disk document may lag the actual
// filesystem. The filesystem mutation and the state save are not
// transactional; a crash between the two leaves them inconsistent.
func (s *Session) Persist(mutate func(doc map[string]any)) {
	if s.store == nil {
		return
	}
	doc := s.store.Load()
	mutate(doc)
	doc[state.KeyUpdatedAt] = state.Timestamp()
	if err := s.store.Save(doc); err != nil {
		slog.Error("Failed to save state", "path", s.store.Path(), "error", err)
	}
}

// Snapshot merges the persisted document with the live session fields.
func (s *Session) Snapshot() map[string]any {
	doc := map[string]any{}
	if s.store != nil {
		doc = s.store.Load()
	}
	if s.root != "" {
		doc[state.KeyWorkdir] = s.root
	} else {
		doc[state.KeyWorkdir] = nil
	}
	doc[state.KeyPrimaryFile] = s.primary
	return doc
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
