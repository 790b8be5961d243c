package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"kitvault-api/internal/model"

	"gopkg.in/yaml.v3"
)

// KitFileStore persists one YAML file per kit definition in a directory.
// The filename (without extension, lowercased) is the kit's storage key.
type KitFileStore struct {
	dir string
}

// NewKitFileStore creates the kit directory if needed and returns a store
// over it.
func NewKitFileStore(dir string) (*KitFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating kit directory: %w", err)
	}
	return &KitFileStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *KitFileStore) Dir() string {
	return s.dir
}

// List reads every *.yml file in the directory. Malformed files are logged
// and skipped; an unknown icon falls back to the default instead of
// skipping the kit.
func (s *KitFileStore) List(ctx context.Context) ([]KitEntry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading kit directory: %w", err)
	}

	var entries []KitEntry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yml") {
			continue
		}

		name := strings.ToLower(strings.TrimSuffix(f.Name(), ".yml"))
		kit, err := s.readFile(filepath.Join(s.dir, f.Name()))
		if err != nil {
			log.Printf("[KitFileStore] skipping %s: %v", f.Name(), err)
			continue
		}
		kit.Name = name
		entries = append(entries, KitEntry{Name: name, Kit: kit})
	}
	return entries, nil
}

func (s *KitFileStore) readFile(path string) (model.KitDefinition, error) {
	kit := model.KitDefinition{
		DisplayName: "Kit",
		Icon:        model.DefaultIcon,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return kit, err
	}
	if err := yaml.Unmarshal(data, &kit); err != nil {
		return kit, fmt.Errorf("parsing kit file: %w", err)
	}

	if !model.ValidIcon(kit.Icon) {
		log.Printf("[KitFileStore] %s: invalid icon %q, using %q", filepath.Base(path), kit.Icon, model.DefaultIcon)
		kit.Icon = model.DefaultIcon
	} else {
		kit.Icon = strings.ToLower(kit.Icon)
	}
	return kit, nil
}

// Write persists a definition as <name>.yml.
func (s *KitFileStore) Write(ctx context.Context, name string, kit model.KitDefinition) error {
	data, err := yaml.Marshal(&kit)
	if err != nil {
		return fmt.Errorf("encoding kit %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name+".yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing kit file %s: %w", path, err)
	}
	return nil
}

// Delete removes a kit file. A missing file is not an error.
func (s *KitFileStore) Delete(ctx context.Context, name string) error {
	path := filepath.Join(s.dir, name+".yml")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting kit file %s: %w", path, err)
	}
	return nil
}

var _ KitStore = (*KitFileStore)(nil)
