package references

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/retailops/erpbridge/pkg/db/models"
	"github.com/retailops/erpbridge/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.ExternalReference{}))
	return conn
}

func TestRepositoryFindMissingReturnsNil(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	ref, err := repo.Find(context.Background(), enums.ReferenceKindProduct, "SKU-404")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestRepositoryUpsertOverwritesInsteadOfDuplicating(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	first := &models.ExternalReference{
		Kind:     enums.ReferenceKindInventoryAdjustment,
		LocalKey: "adj-1",
		RemoteID: "100",
		Metadata: []byte(`{"description":"stock count"}`),
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.ExternalReference{
		Kind:     enums.ReferenceKindInventoryAdjustment,
		LocalKey: "adj-1",
		RemoteID: "200",
		Metadata: []byte(`{"description":"recount"}`),
	}
	require.NoError(t, repo.Upsert(ctx, second))

	ref, err := repo.Find(ctx, enums.ReferenceKindInventoryAdjustment, "adj-1")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "200", ref.RemoteID)

	var count int64
	require.NoError(t, repo.(*repository).db.Model(&models.ExternalReference{}).
		Where("kind = ? AND local_key = ?", enums.ReferenceKindInventoryAdjustment, "adj-1").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepositoryKindsAreIndependentNamespaces(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	for _, kind := range []enums.ReferenceKind{
		enums.ReferenceKindInventoryAdjustment,
		enums.ReferenceKindTransferOrder,
	} {
		require.NoError(t, repo.Upsert(ctx, &models.ExternalReference{
			Kind:     kind,
			LocalKey: "shared-key",
			RemoteID: "id-" + string(kind),
		}))
	}

	ref, err := repo.Find(ctx, enums.ReferenceKindTransferOrder, "shared-key")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "id-transfer_order", ref.RemoteID)
}
