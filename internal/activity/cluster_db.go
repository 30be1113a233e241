package activity

import (
	"context"
	"fmt"

	"github.com/evald/controlplane/internal/model"
)

// ClusterDB contains activities that persist cluster lifecycle transitions.
// Status is written after each provisioning step so a crashed worker never
// strands a cluster in an unknown state.
type ClusterDB struct {
	db DB
}

// NewClusterDB creates a new ClusterDB activity struct.
func NewClusterDB(db DB) *ClusterDB {
	return &ClusterDB{db: db}
}

// UpdateClusterStatusParams holds the parameters for UpdateClusterStatus.
type UpdateClusterStatusParams struct {
	ClusterUID    string  `json:"cluster_uid"`
	Status        string  `json:"status"`
	StatusMessage *string `json:"status_message,omitempty"`
}

// UpdateClusterStatus sets the status (and optional message) of a cluster by UID.
func (a *ClusterDB) UpdateClusterStatus(ctx context.Context, params UpdateClusterStatusParams) error {
	tag, err := a.db.Exec(ctx,
		`UPDATE clusters SET status = $1, status_message = $2, updated_at = now() WHERE uid = $3`,
		params.Status, params.StatusMessage, params.ClusterUID)
	if err != nil {
		return fmt.Errorf("update cluster status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update cluster status: cluster %s not found", params.ClusterUID)
	}
	return nil
}

// GetClusterByUID retrieves a cluster by its UID.
func (a *ClusterDB) GetClusterByUID(ctx context.Context, uid string) (*model.Cluster, error) {
	var c model.Cluster
	err := a.db.QueryRow(ctx,
		`SELECT id, uid, name, status, status_message, created_at, updated_at
		 FROM clusters WHERE uid = $1`, uid,
	).Scan(&c.ID, &c.UID, &c.Name, &c.Status, &c.StatusMessage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get cluster by uid: %w", err)
	}
	return &c, nil
}
