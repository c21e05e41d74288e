package profile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

type file struct {
	Profiles []model.Profile `yaml:"profiles"`
}

// ParseFile decodes a YAML profiles document into a Memory provider.
// Genders are normalized the same way as admin input ("m", "female").
func ParseFile(data []byte) (*Memory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	m := NewMemory()
	seen := make(map[string]bool, len(f.Profiles))
	for i, p := range f.Profiles {
		p.SessionID = strings.TrimSpace(p.SessionID)
		if p.SessionID == "" {
			return nil, fmt.Errorf("profile %d: session_id is required", i)
		}
		g, err := model.ParseGender(string(p.Gender))
		if err != nil || g == model.GenderAny {
			return nil, fmt.Errorf("profile %s: gender must be M or F", p.SessionID)
		}
		p.Gender = g
		if seen[p.SessionID] {
			return nil, fmt.Errorf("profile %s: duplicate session_id", p.SessionID)
		}
		seen[p.SessionID] = true
		m.Put(p)
	}
	return m, nil
}

// LoadFile reads and parses the profiles file at path.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	m, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
