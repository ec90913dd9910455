package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AdminSeedFile models the pre-authorized admin list, e.g.
//
//	admins:
//	  - lead@example.com
//	  - ops@example.com
type AdminSeedFile struct {
	Admins []string `yaml:"admins"`
}

// LoadAdminSeed reads the admin seed YAML. A missing path yields an empty list.
// Emails are lower-cased, trimmed and de-duplicated.
func LoadAdminSeed(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read admin seed: %w", err)
	}
	var seed AdminSeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse admin seed: %w", err)
	}
	seen := make(map[string]struct{}, len(seed.Admins))
	out := make([]string, 0, len(seed.Admins))
	for _, e := range seed.Admins {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}
