// Package dotdir manages the .agentchat/ and ~/.agentchat directories.
//
// The directory holds config.toml, tokens.toml, the local history database
// and the active chat pointer (see session.go).
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the agentchat directory.
	DirName = ".agentchat"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .agentchat/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.agentchat/ dir
//  3. Home ~/.agentchat/ dir
//
// If none is found, Target returns an empty string and no error. Callers that
// need to write state create ~/.agentchat/ themselves via EnsureHome.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating agentchat directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if m.localDirExists() {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Join(cwd, DirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, DirName)
	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		return dir, nil
	}

	return "", nil
}

// EnsureHome resolves the target directory like Target, falling back to
// creating ~/.agentchat/ when nothing is found.
func (m *Manager) EnsureHome(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	if target != "" {
		return target, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}

	target = filepath.Join(home, DirName)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("creating agentchat dir: %w", err)
	}

	return target, nil
}

// localDirExists checks whether a .agentchat/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
