// Package scripts implements the file operations of the agent: creating,
// renaming, appending to, overwriting, listing, and reading files inside
// the session's working directory. Every path is routed through the
// session's guard and every successful mutation is recorded into the
// state document.
package scripts

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/Broccolito/PilotR/pkg/response"
	"github.com/Broccolito/PilotR/pkg/session"
	"github.com/Broccolito/PilotR/pkg/state"
	"github.com/Broccolito/PilotR/pkg/style"
)

// Files bundles the file operations over one session.
type Files struct {
	sess *session.Session
}

func NewFiles(sess *session.Session) *Files {
	return &Files{sess: sess}
}

type CreateResult struct {
	Filename     string `json:"filename"`
	Filepath     string `json:"filepath"`
	ScaffoldUsed bool   `json:"scaffold_used"`
}

// Create writes a new script file, empty or from the scaffold template.
func (f *Files) Create(filename string, overwrite, scaffold bool) (*CreateResult, *response.Error) {
	name, path, rerr := f.sess.ScriptPath(filename)
	if rerr != nil {
		return nil, rerr
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return nil, response.Errf(response.CodeFileExists, "File %s already exists", name).
			WithHints("Set overwrite=true to replace the file", "Choose a different filename")
	}

	content := ""
	if scaffold {
		content = style.Scaffold
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, response.Errf(response.CodeCreateError, "Failed to create file: %v", err)
	}

	f.sess.Persist(func(doc map[string]any) {
		registerFile(doc, name)
	})

	slog.Info("Created R file", "path", path)
	return &CreateResult{Filename: name, Filepath: path, ScaffoldUsed: scaffold}, nil
}

type RenameResult struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// Rename moves a script file, repointing the primary file if it was the
// one renamed.
func (f *Files) Rename(oldName, newName string, overwrite bool) (*RenameResult, *response.Error) {
	oldName, oldPath, rerr := f.sess.ScriptPath(oldName)
	if rerr != nil {
		return nil, rerr
	}
	newName, newPath, rerr := f.sess.ScriptPath(newName)
	if rerr != nil {
		return nil, rerr
	}

	if _, err := os.Stat(oldPath); err != nil {
		return nil, response.Errf(response.CodeFileNotFound, "File %s does not exist", oldName)
	}
	if _, err := os.Stat(newPath); err == nil {
		if !overwrite {
			return nil, response.Errf(response.CodeFileExists, "File %s already exists", newName).
				WithHints("Set overwrite=true to replace the file", "Choose a different name")
		}
		if err := os.Remove(newPath); err != nil {
			return nil, response.Errf(response.CodeRenameError, "Failed to replace %s: %v", newName, err)
		}
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return nil, response.Errf(response.CodeRenameError, "Failed to rename file: %v", err)
	}

	wasPrimary := f.sess.Primary() == oldName
	if wasPrimary {
		f.sess.SetPrimary(newName)
	}
	f.sess.Persist(func(doc map[string]any) {
		files := state.StringSlice(doc[state.KeyFiles])
		if i := slices.Index(files, oldName); i >= 0 {
			files = slices.Delete(files, i, i+1)
			files = append(files, newName)
			doc[state.KeyFiles] = files
		}
		if wasPrimary {
			doc[state.KeyPrimaryFile] = newName
		}
	})

	slog.Info("Renamed file", "old", oldName, "new", newName)
	return &RenameResult{OldName: oldName, NewName: newName}, nil
}

type AppendResult struct {
	Filename      string `json:"filename"`
	LinesAppended int    `json:"lines_appended"`
	TotalLines    int    `json:"total_lines"`
}

// Append adds code to the end of an existing script file, keeping a
// newline between the old and new content.
func (f *Files) Append(code, filename string, ensureTrailingNewline bool) (*AppendResult, *response.Error) {
	name, path, rerr := f.sess.ScriptPath(filename)
	if rerr != nil {
		return nil, rerr
	}

	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, response.Errf(response.CodeFileNotFound, "File %s does not exist", name).
				WithHints("Create the file first with create_R_file", "Check the filename is correct")
		}
		return nil, response.Errf(response.CodeAppendError, "Failed to read file: %v", err)
	}

	toAppend := code
	if ensureTrailingNewline && !strings.HasSuffix(toAppend, "\n") {
		toAppend += "\n"
	}
	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += toAppend

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, response.Errf(response.CodeAppendError, "Failed to append code: %v", err)
	}

	slog.Info("Appended code", "filename", name, "lines", countLines(code))
	return &AppendResult{
		Filename:      name,
		LinesAppended: countLines(code),
		TotalLines:    countLines(content),
	}, nil
}

type WriteResult struct {
	Filename     string `json:"filename"`
	LinesWritten int    `json:"lines_written"`
	ScaffoldUsed bool   `json:"scaffold_used"`
}

// Write replaces a script file's content, optionally prefixing the
// scaffold header, always ending with a trailing newline.
func (f *Files) Write(code, filename string, overwrite, useScaffoldHeader bool) (*WriteResult, *response.Error) {
	name, path, rerr := f.sess.ScriptPath(filename)
	if rerr != nil {
		return nil, rerr
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return nil, response.Errf(response.CodeFileExists, "File %s already exists", name).
			WithHints("Set overwrite=true to replace the file", "Use append_R_code to add to existing file")
	}

	content := code
	if useScaffoldHeader && style.Scaffold != "" {
		content = style.Scaffold + code
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, response.Errf(response.CodeWriteError, "Failed to write code: %v", err)
	}

	f.sess.Persist(func(doc map[string]any) {
		registerFile(doc, name)
	})

	slog.Info("Wrote code", "filename", name, "lines", countLines(content))
	return &WriteResult{Filename: name, LinesWritten: countLines(content), ScaffoldUsed: useScaffoldHeader}, nil
}

type ScriptListing struct {
	Files       []string `json:"files"`
	PrimaryFile string   `json:"primary_file"`
}

// ListRFiles enumerates script files in the working directory, either
// extension case, sorted.
func (f *Files) ListRFiles() (*ScriptListing, *response.Error) {
	entries, err := os.ReadDir(f.sess.Root())
	if err != nil {
		return nil, response.Errf(response.CodeListError, "Failed to list R files: %v", err)
	}

	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".R") || strings.HasSuffix(name, ".r") {
			if !slices.Contains(files, name) {
				files = append(files, name)
			}
		}
	}
	sort.Strings(files)

	return &ScriptListing{Files: files, PrimaryFile: f.sess.Primary()}, nil
}

type Export struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Mtime     int64  `json:"mtime"`
	MtimeStr  string `json:"mtime_str"`
	Extension string `json:"extension"`
}

type ExportListing struct {
	Files   []Export `json:"files"`
	Count   int      `json:"count"`
	Workdir string   `json:"workdir"`
}

// ListExports enumerates working-directory files matching a glob pattern,
// sorted by modification time, size, or name, truncated to limit.
func (f *Files) ListExports(glob, sortBy string, descending bool, limit int) (*ExportListing, *response.Error) {
	entries, err := os.ReadDir(f.sess.Root())
	if err != nil {
		return nil, response.Errf(response.CodeListError, "Failed to list files: %v", err)
	}

	files := []Export{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match, err := doublestar.Match(glob, entry.Name())
		if err != nil {
			return nil, response.Errf(response.CodeListError, "Invalid glob pattern %q: %v", glob, err)
		}
		if !match {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, Export{
			Name:      entry.Name(),
			Size:      info.Size(),
			Mtime:     info.ModTime().Unix(),
			MtimeStr:  info.ModTime().Format(time.RFC3339),
			Extension: filepath.Ext(entry.Name()),
		})
	}

	sortExports(files, sortBy, descending)
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	return &ExportListing{Files: files, Count: len(files), Workdir: f.sess.Root()}, nil
}

func sortExports(files []Export, sortBy string, descending bool) {
	less := func(a, b Export) bool { return a.Mtime < b.Mtime }
	switch sortBy {
	case "size":
		less = func(a, b Export) bool { return a.Size < b.Size }
	case "name":
		less = func(a, b Export) bool { return a.Name < b.Name }
	}
	sort.SliceStable(files, func(i, j int) bool {
		if descending {
			return less(files[j], files[i])
		}
		return less(files[i], files[j])
	})
}

type TextContent struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Lines    int    `json:"lines"`
}

type BinaryContent struct {
	ContentBase64 string `json:"content_base64"`
	Filename      string `json:"filename"`
	Size          int64  `json:"size"`
}

// Read returns a file's content, decoded as text or base64-encoded. The
// file is rejected whole when it exceeds maxBytes; a truncated prefix is
// never returned.
func (f *Files) Read(name string, maxBytes int64, asText bool, encoding string) (any, *response.Error) {
	path, rerr := f.sess.GuardPath(name)
	if rerr != nil {
		return nil, rerr
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, response.Errf(response.CodeFileNotFound, "File %s does not exist", name)
	}
	if !fi.Mode().IsRegular() {
		return nil, response.Errf(response.CodeNotAFile, "%s is not a file", name)
	}
	if fi.Size() > maxBytes {
		return nil, response.Errf(response.CodeFileTooLarge,
			"File size (%d bytes) exceeds maximum (%d bytes)", fi.Size(), maxBytes).
			WithHints(fmt.Sprintf("Increase max_bytes parameter (current: %d)", maxBytes), "Use preview_table for CSV files")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, response.Errf(response.CodeReadError, "Failed to read file: %v", err)
	}

	if !asText {
		return &BinaryContent{
			ContentBase64: base64.StdEncoding.EncodeToString(data),
			Filename:      name,
			Size:          fi.Size(),
		}, nil
	}

	text, err := decodeText(data, encoding)
	if err != nil {
		return nil, response.Errf(response.CodeDecodeError, "Failed to decode file as %s: %v", encoding, err).
			WithHints("Try as_text=false for binary files", fmt.Sprintf("Try a different encoding (current: %s)", encoding))
	}
	return &TextContent{Content: text, Filename: name, Size: fi.Size(), Lines: countLines(text)}, nil
}

func decodeText(data []byte, name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid UTF-8 byte sequence")
		}
		return string(data), nil
	case "ascii", "us-ascii":
		for _, b := range data {
			if b >= 0x80 {
				return "", fmt.Errorf("byte 0x%02x is not ASCII", b)
			}
		}
		return string(data), nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// registerFile adds name to the tracked file list; names already present
// are not duplicated.
func registerFile(doc map[string]any, name string) {
	files := state.StringSlice(doc[state.KeyFiles])
	if !slices.Contains(files, name) {
		files = append(files, name)
	}
	doc[state.KeyFiles] = files
}

// countLines matches the line semantics of splitting on newlines with a
// trailing newline not producing an extra empty line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Count(s, "\n") + 1
}
