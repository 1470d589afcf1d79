// Package history keeps a persisted journal of prompts submitted through
// the REPL, independent of any conversation.
package history

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	promptFileName = "apex_prompt_history"
	maxHistorySize = 1000
)

// History records submitted prompts with file persistence.
type History struct {
	mu      sync.Mutex
	entries []string
	path    string
}

// New creates a History backed by a file in the user's temp directory and
// loads any existing entries.
func New() *History {
	h := &History{
		path: filepath.Join(os.TempDir(), promptFileName),
	}
	h.load()
	return h
}

// Path of the backing file, usable as a readline history file.
func (h *History) Path() string {
	return h.path
}

// load reads entries from the persistent file.
func (h *History) load() {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Open(h.path)
	if err != nil {
		return // File doesn't exist yet, that's fine
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Unescape newlines stored in history
		line = strings.ReplaceAll(line, "\\n", "\n")
		line = strings.ReplaceAll(line, "\\\\", "\\")
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}

	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
}

// save writes entries to the persistent file.
func (h *History) save() {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Create(h.path)
	if err != nil {
		return // Silent failure for history persistence
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, entry := range h.entries {
		// Escape newlines for storage
		escaped := strings.ReplaceAll(entry, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		writer.WriteString(escaped + "\n")
	}
	writer.Flush()
}

// Add records a submitted prompt.
func (h *History) Add(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}

	h.mu.Lock()
	// Don't add duplicates of the last entry
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		h.mu.Unlock()
		return
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > maxHistorySize {
		h.entries = h.entries[len(h.entries)-maxHistorySize:]
	}
	h.mu.Unlock()

	h.save()
}

// Recent returns up to n most recent prompts, newest last.
func (h *History) Recent(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || len(h.entries) == 0 {
		return nil
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	recent := make([]string, n)
	copy(recent, h.entries[len(h.entries)-n:])
	return recent
}
