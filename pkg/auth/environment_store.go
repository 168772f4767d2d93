package auth

import (
	"os"
)

// EnvironmentStore implements CredentialStore over environment variables.
// It is read-only: CI runs and one-off automation set INSTAGRAM_* variables
// instead of writing to a keychain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from environment variables. The name argument
// is ignored; the environment holds at most one account.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	account := e.fromEnvironment()
	if account == nil {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns the environment account if one is configured
func (e *EnvironmentStore) List() ([]*Account, error) {
	account := e.fromEnvironment()
	if account == nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials are configured
func (e *EnvironmentStore) Exists(name string) bool {
	return e.fromEnvironment() != nil
}

func (e *EnvironmentStore) fromEnvironment() *Account {
	account := &Account{
		Name:        "environment",
		Username:    os.Getenv("INSTAGRAM_USERNAME"),
		AccessToken: os.Getenv("INSTAGRAM_ACCESS_TOKEN"),
		AccountID:   os.Getenv("INSTAGRAM_ACCOUNT_ID"),
		SessionID:   os.Getenv("INSTAGRAM_SESSION_ID"),
	}

	if !account.HasGraphCredentials() && !account.HasSessionCredentials() {
		return nil
	}

	return account
}
