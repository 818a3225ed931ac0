// Package auth is the magic-code/guest authentication collaborator
// referenced by spec §6. Credential issuance itself is explicitly out of
// core scope (spec §1); this package only exchanges them over HTTP and
// persists the resulting session token as a local JSON file under the
// persistence directory.
package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/localfirst/tripledb/internal/idgen"
)

// Credentials is the locally persisted auth state.
type Credentials struct {
	Token   string `json:"token"`
	UserID  string `json:"userId"`
	Email   string `json:"email,omitempty"`
	IsGuest bool   `json:"isGuest"`
}

const credentialsFile = "credentials.json"

// Store persists Credentials alongside a stable per-installation device
// id, both under the engine's persistence directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at persistenceDir.
func NewStore(persistenceDir string) *Store {
	return &Store{dir: persistenceDir}
}

// Load reads persisted credentials, or (nil, nil) if none exist yet.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, credentialsFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return &c, nil
}

// Save persists c, overwriting any prior session.
func (s *Store) Save(c *Credentials) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create persistence dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, credentialsFile), data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes any persisted session (sign-out).
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, credentialsFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// deviceIDFile is the plain file, under the persistence directory, that
// holds the stable per-installation device id written on first use.
const deviceIDFile = "device_id"

// LoadOrCreateDeviceID returns the device id for this persistence
// directory, generating and persisting one if absent.
func LoadOrCreateDeviceID(dir string) (string, error) {
	path := filepath.Join(dir, deviceIDFile)
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read device id: %w", err)
	}
	id, err := idgen.NewDeviceID()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create persistence dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}

// Client exchanges credentials with the remote auth endpoint (spec §6:
// sendMagicCode, verifyMagicCode, signInAsGuest, signOut).
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client talking to baseURL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// SendMagicCode requests a one-time code be sent to email.
func (c *Client) SendMagicCode(email string) error {
	_, err := c.post("/auth/send-magic-code", map[string]string{"email": email})
	return err
}

// VerifyMagicCode exchanges email+code for session Credentials.
func (c *Client) VerifyMagicCode(email, code string) (*Credentials, error) {
	body, err := c.post("/auth/verify-magic-code", map[string]string{"email": email, "code": code})
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &creds, nil
}

// SignInAsGuest obtains a guest session without an email.
func (c *Client) SignInAsGuest() (*Credentials, error) {
	body, err := c.post("/auth/guest", nil)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("decode guest response: %w", err)
	}
	creds.IsGuest = true
	return &creds, nil
}

// SignOut invalidates token on the remote.
func (c *Client) SignOut(token string) error {
	_, err := c.post("/auth/sign-out", map[string]string{"token": token})
	return err
}

func (c *Client) post(path string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", &buf)
	if err != nil {
		return nil, fmt.Errorf("network_error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("auth_error: remote rejected request (status %d)", resp.StatusCode)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("network_error: read response: %w", err)
	}
	return out, nil
}
