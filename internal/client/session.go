package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ira/internal/auth"
)

const DefaultServer = "http://localhost:5000"

// SessionUser is the subset of the user record kept on disk.
type SessionUser struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Role   string `yaml:"role"`
	Avatar string `yaml:"avatar"`
}

func SessionUserFrom(u *auth.User) SessionUser {
	if u == nil {
		return SessionUser{}
	}
	return SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), Avatar: u.Avatar}
}

type sessionFile struct {
	Server string       `yaml:"server,omitempty"`
	Token  string       `yaml:"token,omitempty"`
	User   *SessionUser `yaml:"user,omitempty"`
}

// Session is the CLI's signed-in state, persisted as YAML at path.
type Session struct {
	path string
	data sessionFile
}

func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ira", "session.yaml"), nil
}

func NewSession(path string) *Session {
	return &Session{path: path}
}

// Load reads the session file. A missing file is an empty session.
func (s *Session) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.data = sessionFile{}
			return nil
		}
		return fmt.Errorf("read session: %w", err)
	}
	var data sessionFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse session %s: %w", s.path, err)
	}
	s.data = data
	return nil
}

// Set records a successful login or registration and writes it to disk.
func (s *Session) Set(server, token string, user SessionUser) error {
	s.data = sessionFile{Server: server, Token: token, User: &user}
	return s.save()
}

// Clear forgets the token and user. A known server address stays on disk;
// with none the file is removed.
func (s *Session) Clear() error {
	s.data = sessionFile{Server: s.data.Server}
	if s.data.Server != "" {
		return s.save()
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *Session) LoggedIn() bool {
	return s.data.Token != ""
}

func (s *Session) Token() string {
	return s.data.Token
}

func (s *Session) User() (SessionUser, bool) {
	if s.data.User == nil {
		return SessionUser{}, false
	}
	return *s.data.User, true
}

// Server returns the stored API address, or DefaultServer.
func (s *Session) Server() string {
	if s.data.Server == "" {
		return DefaultServer
	}
	return s.data.Server
}

func (s *Session) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
