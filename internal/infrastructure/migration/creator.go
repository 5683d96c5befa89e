package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	versionDigits = 6
	upSuffix      = ".up.sql"
	downSuffix    = ".down.sql"
)

// Pair is a freshly scaffolded up/down migration
type Pair struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// CreateMigration writes an empty up/down pair numbered one past the highest
// version already in dir. Neither file is overwritten if it exists.
func CreateMigration(dir, name, description string) (*Pair, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	existing, err := ListMigrations(os.DirFS(dir))
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%0*d", versionDigits, nextVersion(existing))
	base := filepath.Join(dir, version+"_"+slug)
	p := &Pair{Version: version, Name: slug, UpPath: base + upSuffix, DownPath: base + downSuffix}

	created := time.Now().UTC().Format(time.RFC3339)
	up := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n-- Description: %s\n\n", slug, created, description)
	down := fmt.Sprintf("-- Migration: %s (Rollback)\n-- Created: %s\n\n", slug, created)

	if err := writeNew(p.UpPath, up); err != nil {
		return nil, err
	}
	if err := writeNew(p.DownPath, down); err != nil {
		_ = os.Remove(p.UpPath)
		return nil, err
	}
	return p, nil
}

func nextVersion(existing []string) int {
	if len(existing) == 0 {
		return 1
	}
	last, _, _ := strings.Cut(existing[len(existing)-1], "_")
	n, err := strconv.Atoi(last)
	if err != nil {
		return 1
	}
	return n + 1
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// slugify folds accents, lowercases, drops anything outside [a-z0-9] and
// joins the remaining words with single underscores.
func slugify(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	words := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	kept := words[:0]
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w)
		if w != "" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, "_")
}

// ListMigrations returns the base names of the up migrations at the top of
// fsys in version order. A missing directory is an empty list.
func ListMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		base, ok := strings.CutSuffix(e.Name(), upSuffix)
		if !e.IsDir() && ok && strings.Contains(base, "_") {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	if names == nil {
		names = []string{}
	}
	return names, nil
}
