package model

// Account realm provisioning status. An account stays at pending until the
// identity realm has been provisioned and finalized; pending accounts are
// resumable, not failed.
const (
	RealmStatusPending   = "pending"
	RealmStatusFinalized = "finalized"
	RealmStatusFailed    = "failed"
)

// Cluster lifecycle status constants.
const (
	StatusPending      = "pending"
	StatusProvisioning = "provisioning"
	StatusActive       = "active"
	StatusFailed       = "failed"
	StatusDeleting     = "deleting"
	StatusDeleted      = "deleted"
)
