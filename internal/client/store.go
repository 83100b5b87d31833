package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const (
	identityFile = "identity.json"
	themeFile    = "theme.json"
)

type Identity struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var ErrInvalidTheme = errors.New("theme must be light, dark or system")

// Store persists the authenticated identity and the theme preference across
// runs, each under its own fixed file in dir. Login and Register resolve the
// identity through the REST API; a login that cannot resolve it persists
// nothing.
type Store struct {
	dir string
	api *API
	log *log.Logger
}

func NewStore(dir string, api *API, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	return &Store{dir: dir, api: api, log: logger}, nil
}

func (s *Store) Register(username, password string) (Identity, error) {
	user, err := s.api.Register(username, password)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Id: user.Id, Username: user.Username}
	if err := s.writeIdentity(id); err != nil {
		return Identity{}, err
	}

	return id, nil
}

// Login authenticates and resolves the user id by username, since the login
// response carries no id. Failing to resolve it fails the whole login with
// no partial session persisted.
func (s *Store) Login(username, password string) (Identity, error) {
	if err := s.api.Login(username, password); err != nil {
		return Identity{}, err
	}

	users, err := s.api.Users()
	if err != nil {
		return Identity{}, fmt.Errorf("resolve identity: %w", err)
	}

	for _, u := range users {
		if u.Username == username {
			id := Identity{Id: u.Id, Username: u.Username}
			if err := s.writeIdentity(id); err != nil {
				return Identity{}, err
			}
			return id, nil
		}
	}

	return Identity{}, fmt.Errorf("resolve identity: user %q not found", username)
}

func (s *Store) Logout() error {
	if err := s.api.Logout(); err != nil {
		s.log.Println("logout:", err)
	}

	if err := os.Remove(filepath.Join(s.dir, identityFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear identity: %w", err)
	}

	return nil
}

// Identity returns the cached identity, if any.
func (s *Store) Identity() (Identity, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, identityFile))
	if err != nil {
		return Identity{}, false
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		s.log.Println("corrupt identity file:", err)
		return Identity{}, false
	}

	return id, id.Id != ""
}

func (s *Store) writeIdentity(id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(s.dir, identityFile), data, 0o600); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}

	return nil
}

func (s *Store) Theme() Theme {
	data, err := os.ReadFile(filepath.Join(s.dir, themeFile))
	if err != nil {
		return ThemeSystem
	}

	var t Theme
	if err := json.Unmarshal(data, &t); err != nil {
		return ThemeSystem
	}

	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t
	default:
		return ThemeSystem
	}
}

func (s *Store) SetTheme(t Theme) error {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return ErrInvalidTheme
	}

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(s.dir, themeFile), data, 0o600); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}

	return nil
}
