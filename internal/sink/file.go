package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/jobextract/internal/posting"
)

// FileSink writes each record as indented JSON into Dir.
type FileSink struct {
	Dir string
	// StrictPerms enforces 0700 on the directory and 0600 on files.
	StrictPerms bool
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Persist(_ context.Context, p posting.JobPosting) error {
	if err := ensureDir(s.Dir, s.StrictPerms); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.Dir, FileName(p))
	if err := writeAtomic(path, append(b, '\n'), s.StrictPerms); err != nil {
		return err
	}
	log.Info().Str("stage", "persist").Str("path", path).Msg("record saved")
	return nil
}

// FileRawArchive stores raw model text as job-analysis-raw-<ulid>.txt.
type FileRawArchive struct {
	Dir         string
	StrictPerms bool
}

func (a *FileRawArchive) SaveRaw(_ context.Context, url, model, text string) error {
	if err := ensureDir(a.Dir, a.StrictPerms); err != nil {
		return err
	}
	path := filepath.Join(a.Dir, RawFileName())
	if err := writeAtomic(path, []byte(text), a.StrictPerms); err != nil {
		return err
	}
	log.Info().Str("stage", "parse").Str("url", url).Str("model", model).Str("path", path).Msg("raw response saved")
	return nil
}

func ensureDir(dir string, strict bool) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("sink dir not configured")
	}
	perm := os.FileMode(0o755)
	if strict {
		perm = 0o700
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	// Tighten a directory that already existed.
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(dir, 0o700)
		}
	}
	return nil
}

// writeAtomic writes through a temp file in the same directory and renames
// it into place so readers never see a partial record.
func writeAtomic(path string, data []byte, strict bool) error {
	mode := os.FileMode(0o644)
	if strict {
		mode = 0o600
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, mode); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}

// PurgeByAge removes saved records and raw responses in dir whose
// modification time is older than maxAge. It returns the number removed.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasPrefix(name, "job-analysis-") {
			return nil
		}
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".txt") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime().UTC()) <= maxAge {
			return nil
		}
		if os.Remove(path) == nil {
			removed++
		}
		return nil
	})
	return removed, err
}
