package catalog_test

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/scan-cart/internal/catalog"
	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	// Use in-memory database for tests
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func TestListProducts_Returns5AfterMigrations(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 5)
	assert.Equal(t, "p1", products[0].ID)
}

func TestRunMigrations_Twice(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.RunMigrations("./migrations"))
}

func TestGetItem_ReturnsProduct(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetItem(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Whole Milk", p.Name)
	assert.Equal(t, 10.0, p.Price)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestGetItem_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetItem(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.Nil(t, p)
}

func TestGetItem_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetItem(ctx, "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestUpsertProduct_UpdatesPrice(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	updated, err := repo.UpsertProduct(ctx, domain.Product{ID: "p1", Name: "Whole Milk", Description: "1L carton", Price: 20})
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.Price)

	created, err := repo.UpsertProduct(ctx, domain.Product{ID: "p9", Name: "Butter", Price: 3})
	require.NoError(t, err)
	assert.Equal(t, "Butter", created.Name)

	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 6)
}

func TestUpsertProduct_DuplicateNameIsValidationError(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.UpsertProduct(context.Background(), domain.Product{ID: "p1", Name: "Sourdough Bread", Price: 10})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	p, err := repo.GetItem(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Whole Milk", p.Name)
}

func TestDeleteProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteProduct(ctx, "p3"))

	_, err := repo.GetItem(ctx, "p3")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, "p3"), domain.ErrItemNotFound)
}
