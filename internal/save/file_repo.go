package save

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/game"
)

// ErrNoSave means no save file exists yet; callers start fresh.
var ErrNoSave = errors.New("no save file")

// FileRepo persists one save file under a data directory.
type FileRepo struct {
	path string
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &FileRepo{path: filepath.Join(dataDir, "save.json")}, nil
}

// Load reads and decodes the save file. A missing file yields ErrNoSave; a
// structurally invalid one yields ErrInvalidSave. In both cases the caller
// falls back to a fresh state.
func (r *FileRepo) Load(cat *catalog.Catalog, bal config.Balance, now time.Time) (*game.GameState, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSave
		}
		return nil, err
	}
	return Decode(b, cat, bal, now)
}

// Save encodes and writes the state. The write goes through a temp file and
// rename so a crash mid-write cannot truncate the previous save.
func (r *FileRepo) Save(s *game.GameState, now time.Time) error {
	b, err := Encode(s, now)
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
