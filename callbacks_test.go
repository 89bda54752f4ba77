package paranoia_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	paranoia "github.com/dailaim/paranoia-gorm"
)

func TestDirectDeleteIsSoft(t *testing.T) {
	db := setupDB(t)

	model := ParanoidModel{Name: "direct"}
	require.NoError(t, db.Create(&model).Error)

	result := db.Delete(&model)
	require.NoError(t, result.Error)
	assert.EqualValues(t, 1, result.RowsAffected)
	assert.True(t, model.DeletedAt.Valid)
	assert.True(t, model.IsFrozen())

	var count int64
	require.NoError(t, db.Model(&ParanoidModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Unscoped().Model(&ParanoidModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// deleting again touches nothing
	again := ParanoidModel{}
	again.ID = model.ID
	result = db.Delete(&again)
	require.NoError(t, result.Error)
	assert.EqualValues(t, 0, result.RowsAffected)
}

func TestDirectDeleteRunsHooks(t *testing.T) {
	db := setupDB(t)

	model := CallbackModel{Name: "hooks"}
	require.NoError(t, db.Create(&model).Error)
	require.NoError(t, db.Delete(&model).Error)
	assert.True(t, model.CallbackCalled)

	var count int64
	require.NoError(t, db.Unscoped().Model(&CallbackModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeleteWithConditions(t *testing.T) {
	db := setupDB(t)

	for _, name := range []string{"keep", "drop", "drop"} {
		require.NoError(t, db.Create(&ParanoidModel{Name: name}).Error)
	}

	result := db.Where("name = ?", "drop").Delete(&ParanoidModel{})
	require.NoError(t, result.Error)
	assert.EqualValues(t, 2, result.RowsAffected)

	var names []string
	require.NoError(t, db.Model(&ParanoidModel{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"keep"}, names)

	require.NoError(t, db.Delete(&ParanoidModel{}, "name = ?", "keep").Error)
	require.NoError(t, db.Model(&ParanoidModel{}).Pluck("name", &names).Error)
	assert.Empty(t, names)
}

func TestGlobalDelete(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&ParanoidModel{Name: "global"}).Error)

	err := db.Delete(&ParanoidModel{}).Error
	assert.ErrorIs(t, err, gorm.ErrMissingWhereClause)

	require.NoError(t, db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ParanoidModel{}).Error)

	var count int64
	require.NoError(t, db.Model(&ParanoidModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Unscoped().Model(&ParanoidModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUnscopedDeleteIsHard(t *testing.T) {
	db := setupDB(t)

	model := ParanoidModel{Name: "hard"}
	require.NoError(t, db.Create(&model).Error)
	require.NoError(t, db.Unscoped().Delete(&model).Error)

	var count int64
	require.NoError(t, db.Unscoped().Model(&ParanoidModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestPlainModelUntouched(t *testing.T) {
	db := setupDB(t)

	model := PlainModel{Name: "plain"}
	require.NoError(t, db.Create(&model).Error)
	require.NoError(t, db.Delete(&model).Error)
	assert.False(t, model.DeletedAt.Valid)

	var count int64
	require.NoError(t, db.Unscoped().Model(&PlainModel{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestScopeWithOrCondition(t *testing.T) {
	db := setupDB(t)

	a := ParanoidModel{Name: "a"}
	b := ParanoidModel{Name: "b"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Delete(&a).Error)

	var found []ParanoidModel
	require.NoError(t, db.Or("name = ?", "a").Find(&found).Error)
	assert.Empty(t, found)

	require.NoError(t, db.Where("name = ?", "a").Or("name = ?", "b").Find(&found).Error)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Name)
}

func TestRowScope(t *testing.T) {
	db := setupDB(t)

	a := ParanoidModel{Name: "a"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&ParanoidModel{Name: "b"}).Error)
	require.NoError(t, db.Delete(&a).Error)

	var n int
	require.NoError(t, db.Model(&ParanoidModel{}).Select("count(*)").Row().Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, db.Model(&ParanoidModel{}).Scopes(paranoia.OnlyDeleted).Select("count(*)").Row().Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, db.Model(&ParanoidModel{}).Scopes(paranoia.WithDeleted).Select("count(*)").Row().Scan(&n))
	assert.Equal(t, 2, n)
}

func TestCreateFrozenRejected(t *testing.T) {
	db := setupDB(t)

	model := ParanoidModel{Name: "frozen"}
	model.Freeze()
	assert.ErrorIs(t, db.Create(&model).Error, paranoia.ErrFrozen)
}

func TestBulkUpdateScoped(t *testing.T) {
	db := setupDB(t)

	a := ParanoidModel{Name: "x"}
	b := ParanoidModel{Name: "x"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)
	require.NoError(t, db.Delete(&a).Error)

	result := db.Model(&ParanoidModel{}).Where("name = ?", "x").Update("name", "y")
	require.NoError(t, result.Error)
	assert.EqualValues(t, 1, result.RowsAffected)

	var deleted ParanoidModel
	require.NoError(t, db.Unscoped().First(&deleted, a.ID).Error)
	assert.Equal(t, "x", deleted.Name)

	var active ParanoidModel
	require.NoError(t, db.First(&active, b.ID).Error)
	assert.Equal(t, "y", active.Name)

	// an instance update can't reach a deleted row either
	stale := ParanoidModel{}
	stale.ID = a.ID
	result = db.Model(&stale).Update("name", "z")
	require.NoError(t, result.Error)
	assert.EqualValues(t, 0, result.RowsAffected)

	// without a condition the scope alone is not enough
	assert.ErrorIs(t, db.Model(&ParanoidModel{}).Update("name", "w").Error, gorm.ErrMissingWhereClause)

	result = db.Unscoped().Model(&ParanoidModel{}).Where("name = ?", "x").Update("name", "y")
	require.NoError(t, result.Error)
	assert.EqualValues(t, 1, result.RowsAffected)

	result = db.Model(&ParanoidModel{}).Scopes(paranoia.OnlyDeleted).Where("name = ?", "y").Update("name", "gone")
	require.NoError(t, result.Error)
	assert.EqualValues(t, 1, result.RowsAffected)
	require.NoError(t, db.Unscoped().First(&deleted, a.ID).Error)
	assert.Equal(t, "gone", deleted.Name)
}

func TestBulkUpdatePlainModel(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, db.Create(&PlainModel{Name: "x"}).Error)
	require.NoError(t, db.Create(&PlainModel{Name: "x"}).Error)

	result := db.Model(&PlainModel{}).Where("name = ?", "x").Update("name", "y")
	require.NoError(t, result.Error)
	assert.EqualValues(t, 2, result.RowsAffected)
}
