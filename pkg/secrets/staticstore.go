package secrets

import "fmt"

// StaticStore hands out one token for every ID. It backs a token given
// on the command line or in NETBOX_TOKEN and is never written to.
type StaticStore struct {
	token string
}

func NewStaticStore(token string) *StaticStore {
	return &StaticStore{token: token}
}

func (s *StaticStore) Token(id string) (string, error) {
	if s.token == "" {
		return "", fmt.Errorf("%s: %w", id, ErrNoToken)
	}
	return s.token, nil
}

func (s *StaticStore) SetToken(id string, token string) error {
	return fmt.Errorf("static token store is read-only")
}

func (s *StaticStore) IDs() ([]string, error) {
	return []string{}, nil
}

func (s *StaticStore) Remove(id string) error {
	return fmt.Errorf("static token store is read-only")
}
