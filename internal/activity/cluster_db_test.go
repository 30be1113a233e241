package activity

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evald/controlplane/internal/model"
)

func TestUpdateClusterStatus_Success(t *testing.T) {
	msg := "tofu apply exited 1: timeout"
	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.Anything, []any{model.StatusFailed, &msg, "c-test1"}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	a := NewClusterDB(db)
	err := a.UpdateClusterStatus(context.Background(), UpdateClusterStatusParams{
		ClusterUID:    "c-test1",
		Status:        model.StatusFailed,
		StatusMessage: &msg,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestUpdateClusterStatus_NotFound(t *testing.T) {
	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	a := NewClusterDB(db)
	err := a.UpdateClusterStatus(context.Background(), UpdateClusterStatusParams{
		ClusterUID: "missing",
		Status:     model.StatusActive,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetClusterByUID(t *testing.T) {
	now := time.Now()
	db := &mockDB{}
	db.On("QueryRow", mock.Anything, mock.Anything, []any{"c-test1"}).Return(mockRow{
		scan: func(dest ...any) error {
			*dest[0].(*string) = "cluster-1"
			*dest[1].(*string) = "c-test1"
			*dest[2].(*string) = "prod-eu"
			*dest[3].(*string) = model.StatusActive
			*dest[5].(*time.Time) = now
			*dest[6].(*time.Time) = now
			return nil
		},
	})

	a := NewClusterDB(db)
	c, err := a.GetClusterByUID(context.Background(), "c-test1")
	require.NoError(t, err)
	assert.Equal(t, "prod-eu", c.Name)
	assert.Equal(t, model.StatusActive, c.Status)
	assert.Nil(t, c.StatusMessage)
}
