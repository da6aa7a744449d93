package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRoles is dealt when no roles file can be read.
var DefaultRoles = []string{
	"Harry Potter",
	"Sherlock Holmes",
	"Superman",
	"Spider-Man",
	"Batman",
	"James Bond",
}

// ReadRoles reads a role list from a JSON or YAML file. Blank entries are dropped.
func ReadRoles(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roles: %w", err)
	}

	var roles []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &roles)
	default:
		err = json.Unmarshal(data, &roles)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing roles %s: %w", path, err)
	}

	out := roles[:0]
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

// LoadRoles is ReadRoles falling back to DefaultRoles on any failure or an empty file.
func LoadRoles(path string) []string {
	if path == "" {
		return DefaultRoles
	}
	roles, err := ReadRoles(path)
	if err != nil {
		log.Printf("Using default roles: %v", err)
		return DefaultRoles
	}
	if len(roles) == 0 {
		log.Printf("Roles file %s is empty, using default roles", path)
		return DefaultRoles
	}
	return roles
}
