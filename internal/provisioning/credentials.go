package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/impulso-digital/plataforma/internal/shared/config"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
)

// Account is the credential record pushed to the external identity
// store when a member is provisioned.
type Account struct {
	MemberID string `json:"member_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CredentialStore is the external identity backend holding login
// credentials. Unreachable is a degraded state, not a provisioning
// failure: the member record is kept and reconciled later.
type CredentialStore interface {
	CreateAccount(ctx context.Context, account Account) error
}

// HTTPCredentialStore talks to the identity store over HTTP.
type HTTPCredentialStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCredentialStore creates a credential store client
func NewHTTPCredentialStore(cfg config.IdentityConfig) *HTTPCredentialStore {
	return &HTTPCredentialStore{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateAccount registers the account with the identity store
func (s *HTTPCredentialStore) CreateAccount(ctx context.Context, account Account) error {
	body, err := json.Marshal(account)
	if err != nil {
		return errors.Wrap(err, "failed to marshal account")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/accounts", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build identity store request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.ExternalUnavailable("identity store", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return errors.Conflict("account already exists in identity store")
	case resp.StatusCode >= 500:
		return errors.ExternalUnavailable("identity store", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return errors.InvalidInput(fmt.Sprintf("identity store rejected account: status %d", resp.StatusCode), nil)
	}

	return nil
}

// MemoryCredentialStore keeps accounts in memory. Used in tests and
// when the platform runs without an identity store.
type MemoryCredentialStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	fail     error
}

// NewMemoryCredentialStore creates an empty in-memory credential store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{accounts: make(map[string]Account)}
}

// FailWith makes subsequent CreateAccount calls return err. Pass nil to
// restore normal behavior.
func (s *MemoryCredentialStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *MemoryCredentialStore) CreateAccount(ctx context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail != nil {
		return s.fail
	}
	s.accounts[account.MemberID] = account
	return nil
}

// Account returns the stored account for a member, if any.
func (s *MemoryCredentialStore) Account(memberID string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[memberID]
	return account, ok
}
