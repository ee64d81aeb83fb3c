package channels

import (
	"fmt"
	"testing"
	"time"

	"pulse/internal/apperr"
	pulsedb "pulse/internal/db"
	"pulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := pulsedb.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Channel{}, &models.ChannelField{}, &models.Record{},
	))
	return db
}

func TestCreateDefaults(t *testing.T) {
	repo := NewRepo(newTestDB(t))

	ch, err := repo.Create("owner-1", CreateInput{
		Name: "greenhouse",
		Fields: []FieldInput{
			{Name: "field1", Label: "Temp"},
			{Name: "field2", Label: "Humidity"},
		},
		IsPublic: false,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ch.UUID)
	assert.Len(t, ch.WriteAPIKey, 32)
	assert.Nil(t, ch.ReadAPIKey, "read key absent until explicitly generated")
	assert.True(t, ch.IsPrivate)
	assert.False(t, ch.IsPublic)
	require.Len(t, ch.Fields, 2)
	assert.Equal(t, "Temp", ch.Fields[0].Label)
	assert.Equal(t, "Humidity", ch.Fields[1].Label)
}

func TestCreateRequiresName(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	_, err := repo.Create("owner-1", CreateInput{Name: "  "})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateRejectsTooManyFields(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	fields := make([]FieldInput, models.MaxFields+1)
	_, err := repo.Create("owner-1", CreateInput{Name: "x", Fields: fields})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestQuota(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	for i := 0; i < models.MaxChannelsPerUser; i++ {
		_, err := repo.Create("owner-1", CreateInput{Name: fmt.Sprintf("ch-%d", i)})
		require.NoError(t, err)
	}
	_, err := repo.Create("owner-1", CreateInput{Name: "one too many"})
	require.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	// квота считается на владельца, соседям не мешает
	_, err = repo.Create("owner-2", CreateInput{Name: "fresh start"})
	require.NoError(t, err)

	n, err := repo.countByOwner(repo.db, "owner-1")
	require.NoError(t, err)
	assert.EqualValues(t, models.MaxChannelsPerUser, n)
}

func TestGetOwnershipScoped(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ch, err := repo.Create("owner-1", CreateInput{Name: "mine"})
	require.NoError(t, err)

	// чужой канал неотличим от несуществующего
	_, err = repo.Get("owner-2", ch.UUID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.Get("owner-1", "not-a-uuid")
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := repo.Get("owner-1", ch.UUID)
	require.NoError(t, err)
	assert.Equal(t, ch.UUID, got.UUID)
}

func TestUpdatePrivacyInvariant(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ch, err := repo.Create("owner-1", CreateInput{Name: "ch", IsPublic: false})
	require.NoError(t, err)

	pub := true
	got, err := repo.Update("owner-1", ch.UUID, UpdateInput{IsPublic: &pub})
	require.NoError(t, err)
	assert.True(t, got.IsPublic)
	assert.False(t, got.IsPrivate)

	// противоречивый вход: приоритет у isPrivate
	priv := true
	got, err = repo.Update("owner-1", ch.UUID, UpdateInput{IsPublic: &pub, IsPrivate: &priv})
	require.NoError(t, err)
	assert.True(t, got.IsPrivate)
	assert.False(t, got.IsPublic)
}

func TestUpdatePartial(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ch, err := repo.Create("owner-1", CreateInput{
		Name:        "orig",
		Description: "orig desc",
		Fields:      []FieldInput{{Name: "field1", Label: "A"}},
	})
	require.NoError(t, err)

	desc := "new desc"
	got, err := repo.Update("owner-1", ch.UUID, UpdateInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "orig", got.Name, "omitted fields stay untouched")
	assert.Equal(t, "new desc", got.Description)
	require.Len(t, got.Fields, 1)

	fields := []FieldInput{{Name: "field1", Label: "B"}, {Name: "field2", Label: "C"}}
	got, err = repo.Update("owner-1", ch.UUID, UpdateInput{Fields: &fields})
	require.NoError(t, err)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "B", got.Fields[0].Label)
	assert.Equal(t, "C", got.Fields[1].Label)

	empty := " "
	_, err = repo.Update("owner-1", ch.UUID, UpdateInput{Name: &empty})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGenerateReadKeyRotation(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ch, err := repo.Create("owner-1", CreateInput{Name: "ch"})
	require.NoError(t, err)

	first, err := repo.GenerateReadKey("owner-1", ch.UUID)
	require.NoError(t, err)
	second, err := repo.GenerateReadKey("owner-1", ch.UUID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// старый ключ умирает сразу, без окна пересечения
	_, err = repo.ResolveByReadKey(first)
	require.ErrorIs(t, err, apperr.ErrInvalidKey)

	got, err := repo.ResolveByReadKey(second)
	require.NoError(t, err)
	assert.Equal(t, ch.UUID, got.UUID)
}

func TestResolveByWriteKey(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ch, err := repo.Create("owner-1", CreateInput{Name: "ch"})
	require.NoError(t, err)

	got, err := repo.ResolveByWriteKey(ch.WriteAPIKey)
	require.NoError(t, err)
	assert.Equal(t, ch.UUID, got.UUID)

	_, err = repo.ResolveByWriteKey("bogus-key")
	require.ErrorIs(t, err, apperr.ErrInvalidKey)
	_, err = repo.ResolveByWriteKey("")
	require.ErrorIs(t, err, apperr.ErrInvalidKey)

	// write-ключ не работает в read-слоте
	_, err = repo.ResolveByReadKey(ch.WriteAPIKey)
	require.ErrorIs(t, err, apperr.ErrInvalidKey)
}

func TestDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ch, err := repo.Create("owner-1", CreateInput{Name: "doomed"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Record{
			EntryUUID:   fmt.Sprintf("e-%d", i),
			ChannelUUID: ch.UUID,
			CreatedAt:   time.Now().UTC(),
		}).Error)
	}

	require.NoError(t, repo.Delete("owner-1", ch.UUID))

	_, err = repo.Get("owner-1", ch.UUID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// проверяем на уровне хранилища, не через реестр
	var n int64
	require.NoError(t, db.Model(&models.Record{}).Where("channel_uuid = ?", ch.UUID).Count(&n).Error)
	assert.Zero(t, n, "no orphaned records after cascade")

	require.NoError(t, db.Model(&models.ChannelField{}).Where("channel_id = ?", ch.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteOwnershipScoped(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ch, err := repo.Create("owner-1", CreateInput{Name: "mine"})
	require.NoError(t, err)

	require.ErrorIs(t, repo.Delete("owner-2", ch.UUID), apperr.ErrNotFound)
	_, err = repo.Get("owner-1", ch.UUID)
	require.NoError(t, err)
}

func TestFieldSlotDefaults(t *testing.T) {
	repo := NewRepo(newTestDB(t))
	ch, err := repo.Create("owner-1", CreateInput{
		Name:   "ch",
		Fields: []FieldInput{{Label: "no name"}, {Name: "custom", Label: "named"}},
	})
	require.NoError(t, err)
	require.Len(t, ch.Fields, 2)
	assert.Equal(t, "field1", ch.Fields[0].Name, "blank slot name falls back to positional id")
	assert.Equal(t, "custom", ch.Fields[1].Name)
	assert.Equal(t, 1, ch.Fields[0].Position)
	assert.Equal(t, 2, ch.Fields[1].Position)
}
