// Package secretstore persists API credentials in the OS keyring rather
// than on disk in plaintext, via zalando/go-keyring.
package secretstore

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

// service is the keyring service name all accounts are grouped under.
const service = "dictationd"

// Account names the two credential slots the app persists.
type Account string

const (
	AccountOpenAI Account = "openAi"
	AccountAzure  Account = "azureOpenAi"
)

// OpenAICredential is the JSON value stored for AccountOpenAI.
type OpenAICredential struct {
	APIKey string `json:"apiKey"`
}

// AzureCredential is the JSON value stored for AccountAzure.
type AzureCredential struct {
	APIKey   string `json:"apiKey"`
	Endpoint string `json:"endpoint"`
}

// Store reads and writes credentials through the OS keyring.
type Store struct{}

// New returns a Store. It holds no state: every call hits the keyring
// directly.
func New() *Store { return &Store{} }

// SetOpenAI persists the OpenAI API key.
func (s *Store) SetOpenAI(cred OpenAICredential) error {
	return s.set(AccountOpenAI, cred)
}

// GetOpenAI reads the OpenAI credential, or keyring.ErrNotFound if unset.
func (s *Store) GetOpenAI() (OpenAICredential, error) {
	var cred OpenAICredential
	err := s.get(AccountOpenAI, &cred)
	return cred, err
}

// SetAzure persists the Azure OpenAI credential.
func (s *Store) SetAzure(cred AzureCredential) error {
	return s.set(AccountAzure, cred)
}

// GetAzure reads the Azure credential, or keyring.ErrNotFound if unset.
func (s *Store) GetAzure() (AzureCredential, error) {
	var cred AzureCredential
	err := s.get(AccountAzure, &cred)
	return cred, err
}

// Delete removes whatever credential is stored for account, if any.
func (s *Store) Delete(account Account) error {
	err := keyring.Delete(service, string(account))
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("secretstore: delete %s: %w", account, err)
	}
	return nil
}

func (s *Store) set(account Account, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("secretstore: marshal %s: %w", account, err)
	}
	if err := keyring.Set(service, string(account), string(data)); err != nil {
		return fmt.Errorf("secretstore: set %s: %w", account, err)
	}
	return nil
}

func (s *Store) get(account Account, out any) error {
	data, err := keyring.Get(service, string(account))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("secretstore: unmarshal %s: %w", account, err)
	}
	return nil
}

// IsNotFound reports whether err indicates the account has no stored
// credential.
func IsNotFound(err error) bool {
	return err == keyring.ErrNotFound
}
