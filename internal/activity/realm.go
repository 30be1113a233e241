package activity

import (
	"context"

	"github.com/rs/zerolog"
)

// RealmProvisioner is the identity-provider admin contract consumed by the
// onboarding workflow. ProvisionRealm must be idempotent: creating a realm
// that already exists is success.
type RealmProvisioner interface {
	ProvisionRealm(ctx context.Context, realmUID, adminEmail string) error
}

// Realm contains the external identity-realm provisioning activity. It never
// touches the relational store: keeping the external side effect in its own
// activity is what makes it independently retryable.
type Realm struct {
	logger      zerolog.Logger
	provisioner RealmProvisioner
}

// NewRealm creates a new Realm activity struct.
func NewRealm(logger zerolog.Logger, provisioner RealmProvisioner) *Realm {
	return &Realm{
		logger:      logger.With().Str("component", "realm-activity").Logger(),
		provisioner: provisioner,
	}
}

// ProvisionRealmParams holds the parameters for ProvisionRealm.
type ProvisionRealmParams struct {
	RealmUID   string `json:"realm_uid"`
	AdminEmail string `json:"admin_email"`
}

// ProvisionRealm creates (or reuses) the identity realm named after the
// account UID.
func (a *Realm) ProvisionRealm(ctx context.Context, params ProvisionRealmParams) error {
	a.logger.Info().Str("realm", params.RealmUID).Msg("provisioning identity realm")
	return a.provisioner.ProvisionRealm(ctx, params.RealmUID, params.AdminEmail)
}
