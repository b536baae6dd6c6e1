// Package auth loads the access descriptor: the TACACS+ credential pair,
// the candidate TACACS endpoints, and the optional router-hop credentials.
// The descriptor is immutable once loaded and shared read-only by every
// device session in the run.
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Access is the structured access descriptor.
type Access struct {
	TacacsUser    string   `yaml:"tacacs_user" validate:"required"`
	TacacsPass    string   `yaml:"tacacs_pass"`
	TacacsServers []string `yaml:"tacacs_servers" validate:"min=1,dive,required"`

	RouterUser string `yaml:"router_user"`
	RouterPass string `yaml:"router_pass"`
}

var validate = validator.New()

// Load reads the access descriptor from a YAML file.
func Load(path string) (*Access, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read access descriptor: %w", err)
	}
	a := &Access{}
	if err := yaml.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("failed to parse access descriptor: %w", err)
	}
	if err := validate.Struct(a); err != nil {
		return nil, fmt.Errorf("access descriptor validation failed: %w", err)
	}
	return a, nil
}

// HopConfigured reports whether a secondary router-hop login is configured.
func (a *Access) HopConfigured() bool {
	return a.RouterUser != ""
}

// PromptMissing interactively reads the TACACS password without echo when
// the descriptor left it empty. Fails when stdin is not a terminal.
func (a *Access) PromptMissing() error {
	if a.TacacsPass != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("tacacs_pass is empty and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "TACACS+ password for %s: ", a.TacacsUser)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	a.TacacsPass = strings.TrimSpace(string(raw))
	if a.TacacsPass == "" {
		return fmt.Errorf("empty TACACS password")
	}
	return nil
}
