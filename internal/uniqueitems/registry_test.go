package uniqueitems

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/dbtest"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
)

type fixture struct {
	client   *db.Client
	registry *Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	registry, err := NewRegistry(NewRepository(client.DB()), []string{"phone", " Celular "})
	require.NoError(t, err)
	return fixture{client: client, registry: registry}
}

func (f fixture) good(t *testing.T, owner uuid.UUID) *models.Good {
	t.Helper()
	g := &models.Good{
		Type:           "phone",
		Brand:          "Acme",
		Model:          "X1-" + uuid.NewString()[:4],
		OwnerID:        owner,
		RegisteredByID: owner,
		Price:          decimal.NewFromInt(100),
	}
	require.NoError(t, f.client.DB().Create(g).Error)
	return g
}

func (f fixture) tx(t *testing.T, fn func(tx *gorm.DB) error) error {
	t.Helper()
	return f.client.WithTx(context.Background(), fn)
}

func TestIsSerialized(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.registry.IsSerialized("PHONE"))
	assert.True(t, f.registry.IsSerialized("celular"))
	assert.False(t, f.registry.IsSerialized("bicicleta"))
}

func TestCreateOrReuseIsIdempotentForSameOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	g := f.good(t, owner)

	var first, second *models.UniqueItem
	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		var created bool
		var err error
		first, created, err = f.registry.CreateOrReuse(ctx, tx, "111", g, Attrs{})
		require.True(t, created)
		return err
	}))
	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		var created bool
		var err error
		second, created, err = f.registry.CreateOrReuse(ctx, tx, "111", g, Attrs{})
		require.False(t, created)
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, enums.UniqueItemStatusAvailable, second.Status)
}

func TestCreateOrReuseConflictsAcrossOwners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1, u3 := uuid.New(), uuid.New()
	g1, g3 := f.good(t, u1), f.good(t, u3)

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		_, _, err := f.registry.CreateOrReuse(ctx, tx, "111", g1, Attrs{})
		return err
	}))

	err := f.tx(t, func(tx *gorm.DB) error {
		_, _, err := f.registry.CreateOrReuse(ctx, tx, "111", g3, Attrs{})
		return err
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	err = f.tx(t, func(tx *gorm.DB) error {
		return f.registry.ValidateOwnership(ctx, tx, "111", u3)
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	assert.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		return f.registry.ValidateOwnership(ctx, tx, "111", u1)
	}))
	assert.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		return f.registry.ValidateOwnership(ctx, tx, "never-seen", u3)
	}))
}

func TestMarkSoldLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.good(t, uuid.New())
	photo := "https://cdn.example/sold.jpg"

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		_, _, err := f.registry.CreateOrReuse(ctx, tx, "222", g, Attrs{})
		return err
	}))

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		item, err := f.registry.MarkSold(ctx, tx, "222", &photo)
		if err == nil {
			assert.Equal(t, enums.UniqueItemStatusSold, item.Status)
		}
		return err
	}))

	err := f.tx(t, func(tx *gorm.DB) error {
		_, err := f.registry.MarkSold(ctx, tx, "222", nil)
		return err
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err), "sold is terminal")

	err = f.tx(t, func(tx *gorm.DB) error {
		_, err := f.registry.MarkSold(ctx, tx, "missing", nil)
		return err
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	items, err := f.registry.ListByGood(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Photo)
	assert.Equal(t, photo, *items[0].Photo)
}

func TestReassignRequiresSoldBySeller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seller, buyer, stranger := uuid.New(), uuid.New(), uuid.New()
	from, to := f.good(t, seller), f.good(t, buyer)

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		_, _, err := f.registry.CreateOrReuse(ctx, tx, "333", from, Attrs{})
		return err
	}))

	err := f.tx(t, func(tx *gorm.DB) error {
		_, err := f.registry.Reassign(ctx, tx, "333", seller, to)
		return err
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err), "available items cannot move")

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		_, err := f.registry.MarkSold(ctx, tx, "333", nil)
		return err
	}))

	err = f.tx(t, func(tx *gorm.DB) error {
		_, err := f.registry.Reassign(ctx, tx, "333", stranger, to)
		return err
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		item, err := f.registry.Reassign(ctx, tx, "333", seller, to)
		if err == nil {
			assert.Equal(t, to.ID, item.GoodID)
			assert.Equal(t, enums.UniqueItemStatusAvailable, item.Status)
		}
		return err
	}))
}

func TestSyntheticItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.good(t, uuid.New())

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		items, err := f.registry.CreateSynthetic(ctx, tx, g, 3, Attrs{})
		if err == nil {
			assert.Len(t, items, 3)
			for _, it := range items {
				assert.True(t, strings.HasPrefix(it.Identifier, g.ID.String()+"-"))
				assert.True(t, it.Synthetic)
			}
		}
		return err
	}))

	require.NoError(t, f.tx(t, func(tx *gorm.DB) error {
		sold, err := f.registry.SellAvailable(ctx, tx, g.ID, 2)
		if err == nil {
			assert.Len(t, sold, 2)
		}
		return err
	}))

	err := f.tx(t, func(tx *gorm.DB) error {
		_, err := f.registry.SellAvailable(ctx, tx, g.ID, 2)
		return err
	})
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(err))
}

func TestNormalizeIdentifiers(t *testing.T) {
	out, err := NormalizeIdentifiers([]string{" 111 ", "222"})
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, out)

	_, err = NormalizeIdentifiers([]string{"111", "111"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = NormalizeIdentifiers([]string{"  "})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestGenerateSyntheticUnique(t *testing.T) {
	ids := GenerateSynthetic(uuid.New(), 50)
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}
