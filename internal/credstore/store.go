// Package credstore persists the session's credential pair and identity.
//
// Each logical record (credential pair, identity) is written as a single
// document so no caller can ever observe half of a token pair. Absence and
// infrastructure failure are distinct: absence is ErrNotFound, everything
// else means the storage layer is unavailable and the session must degrade
// to logged-out.
package credstore

import (
	"context"
	"errors"

	"github.com/sportcenterhq/client-go/internal/models"
)

// ErrNotFound signals that a record is absent rather than unreadable.
var ErrNotFound = errors.New("credstore: not found")

// Store is the persistence contract for session state.
type Store interface {
	SaveCredential(ctx context.Context, cred *models.Credential) error
	LoadCredential(ctx context.Context) (*models.Credential, error)
	SaveIdentity(ctx context.Context, identity *models.Identity) error
	LoadIdentity(ctx context.Context) (*models.Identity, error)
	Clear(ctx context.Context) error
}
