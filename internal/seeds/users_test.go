package seeds_test

import (
	"context"
	"testing"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/seeds"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	first, err := seeds.GetOrCreateUsers(db)
	require.NoError(t, err)
	require.NoError(t, seeds.FollowEveryone(db, first))

	second, err := seeds.GetOrCreateUsers(db)
	require.NoError(t, err)
	require.NoError(t, seeds.FollowEveryone(db, second))

	assert.Equal(t, first[0].ID, second[0].ID)

	var users, links int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.UserLink{}).Count(&links).Error)
	n := int64(len(seeds.DemoUsers))
	assert.Equal(t, n, users)
	assert.Equal(t, n*(n-1), links)

	following, err := store.NewGormDirectory(db).Following(context.Background(), first[0].ID)
	require.NoError(t, err)
	assert.Len(t, following, int(n-1))
}
