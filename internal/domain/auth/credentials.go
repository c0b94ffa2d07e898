package auth

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// CredentialEntry is one row of the credential table as configured.
type CredentialEntry struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     Role   `yaml:"role"`
}

func DefaultCredentials() []CredentialEntry {
	return []CredentialEntry{
		{ID: 1, Name: "Admin User", Email: "admin@example.com", Password: "admin123", Role: RoleAdmin},
		{ID: 2, Name: "John Employee", Email: "john@example.com", Password: "employee123", Role: RoleEmployee},
	}
}

type credentialsFile struct {
	Users []CredentialEntry `yaml:"users"`
}

func LoadCredentialFile(path string) ([]CredentialEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf credentialsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return cf.Users, nil
}

// MaxPasswordBytes is the longest password bcrypt hashes without truncation.
const MaxPasswordBytes = 72

// Verifier checks an email/password pair and returns the matching user.
type Verifier interface {
	Verify(email, password string) (User, error)
}

type credential struct {
	user User
	hash []byte
}

// CredentialTable holds bcrypt hashes keyed by exact email.
type CredentialTable struct {
	byEmail map[string]credential
}

type CredentialOption func(*credentialConfig)

type credentialConfig struct {
	cost int
}

func WithHashCost(cost int) CredentialOption {
	return func(c *credentialConfig) { c.cost = cost }
}

func NewCredentialTable(entries []CredentialEntry, opts ...CredentialOption) (*CredentialTable, error) {
	cfg := credentialConfig{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&cfg)
	}

	table := &CredentialTable{byEmail: make(map[string]credential, len(entries))}
	for _, e := range entries {
		if e.Email == "" || e.Password == "" {
			return nil, fmt.Errorf("credential %d: email and password are required", e.ID)
		}
		if len(e.Password) > MaxPasswordBytes {
			return nil, fmt.Errorf("credential %s: password longer than %d bytes", e.Email, MaxPasswordBytes)
		}
		if !e.Role.Valid() {
			return nil, fmt.Errorf("credential %s: unknown role %q", e.Email, e.Role)
		}
		if _, ok := table.byEmail[e.Email]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, e.Email)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(e.Password), cfg.cost)
		if err != nil {
			return nil, err
		}
		table.byEmail[e.Email] = credential{
			user: User{ID: e.ID, Name: e.Name, Email: e.Email, Role: e.Role},
			hash: hash,
		}
	}
	return table, nil
}

// Verify matches email case-sensitively and the password against its hash.
func (t *CredentialTable) Verify(email, password string) (User, error) {
	c, ok := t.byEmail[email]
	if !ok || len(password) > MaxPasswordBytes {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return c.user, nil
}

func (t *CredentialTable) Len() int { return len(t.byEmail) }
