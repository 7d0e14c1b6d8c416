package statereader

import (
	"fmt"
	"os"
	"path/filepath"
)

// State file names inside the game's States directory.
const (
	GameStateFile  = "GameState.json"
	CollectionFile = "CollectionState.json"
	PlayStateFile  = "PlayState.json"
)

// Locator discovers the game's state directory under the user profile.
type Locator struct {
	home     string
	override string
}

// NewLocator creates a Locator rooted at home. An empty home uses the
// current user's home directory. A non-empty override is probed first.
func NewLocator(home, override string) (*Locator, error) {
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get user home directory: %w", err)
		}
		home = h
	}
	return &Locator{home: home, override: override}, nil
}

func (l *Locator) primaryDir() string {
	return filepath.Join(l.home, "AppData", "LocalLow", "Second Dinner", "SNAP", "Standalone", "States")
}

func (l *Locator) altDir() string {
	return filepath.Join(l.home, "AppData", "LocalLow", "Nuverse", "Marvel Snap", "Standalone", "States")
}

// Candidates returns the directories probed, in order.
func (l *Locator) Candidates() []string {
	primary, alt := l.primaryDir(), l.altDir()

	var dirs []string
	if l.override != "" {
		dirs = append(dirs, l.override)
	}
	dirs = append(dirs,
		primary,
		alt,
		filepath.Join(primary, "nvprod"),
		filepath.Join(primary, "pvprod"),
		filepath.Join(alt, "nvprod"),
		filepath.Join(alt, "pvprod"),
		filepath.Dir(primary),
	)
	return dirs
}

// Find returns the first candidate path at which name exists as a file.
func (l *Locator) Find(name string) (string, error) {
	for _, dir := range l.Candidates() {
		path := filepath.Join(dir, name)
		ok, err := FileExists(path)
		if err != nil {
			return "", err
		}
		if ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrStateFileNotFound)
}

// GameState locates the live game-state file.
func (l *Locator) GameState() (string, error) { return l.Find(GameStateFile) }

// Collection locates the collection file.
func (l *Locator) Collection() (string, error) { return l.Find(CollectionFile) }

// PlayState locates the selected-deck file.
func (l *Locator) PlayState() (string, error) { return l.Find(PlayStateFile) }

// FileExists checks if a regular file exists at path.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat state file: %w", err)
	}
	return !info.IsDir(), nil
}
