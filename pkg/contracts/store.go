package contracts

import "github.com/oarkflow/usermgr/pkg/models"

// CredentialStore manages the Basic-auth credentials file.
type CredentialStore interface {
	List() ([]models.Credential, error)
	Exists(username string) (bool, error)
	Add(username, passwordHash string) error
	Delete(username string) error
	Path() string
}
