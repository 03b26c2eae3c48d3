package correios_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storelink/correios-bridge/pkg/correios"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "contracts.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&correios.Contract{}))
	return db
}

func TestGormContractStore_LoadMissing(t *testing.T) {
	store := correios.NewGormContractStore(newTestDB(t))

	_, err := store.Load(context.Background(), 1001)

	assert.ErrorIs(t, err, correios.ErrNoContract)
}

func TestGormContractStore_MergeCreatesAndLoads(t *testing.T) {
	store := correios.NewGormContractStore(newTestDB(t))
	ctx := context.Background()

	contract := &correios.Contract{
		StoreID:        1001,
		Username:       "loja",
		AccessCode:     "secret",
		PostCardNumber: "0067599079",
		NuContrato:     "9912345678",
		NuDR:           36,
		Token:          "token-1",
		ExpiredAt:      time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, store.Merge(ctx, contract))

	loaded, err := store.Load(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "loja", loaded.Username)
	assert.Equal(t, "9912345678", loaded.NuContrato)
	assert.Equal(t, "token-1", loaded.Token)
}

func TestGormContractStore_MergePreservesUnsetFields(t *testing.T) {
	store := correios.NewGormContractStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, &correios.Contract{
		StoreID:        1001,
		Username:       "loja",
		AccessCode:     "secret",
		PostCardNumber: "0067599079",
		Token:          "token-1",
	}))

	// A partial write only carrying the refreshed token must not clear
	// the stored credentials.
	require.NoError(t, store.Merge(ctx, &correios.Contract{
		StoreID:   1001,
		Token:     "token-2",
		ExpiredAt: time.Now().Add(time.Hour).UTC(),
	}))

	loaded, err := store.Load(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "token-2", loaded.Token)
	assert.Equal(t, "loja", loaded.Username)
	assert.Equal(t, "secret", loaded.AccessCode)
	assert.Equal(t, "0067599079", loaded.PostCardNumber)
}

func TestGormContractStore_MergeKeepsSingleRow(t *testing.T) {
	db := newTestDB(t)
	store := correios.NewGormContractStore(db)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, &correios.Contract{StoreID: 1001, Token: "token-1"}))
	require.NoError(t, store.Merge(ctx, &correios.Contract{StoreID: 1001, Token: "token-2"}))

	var count int64
	require.NoError(t, db.Model(&correios.Contract{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
