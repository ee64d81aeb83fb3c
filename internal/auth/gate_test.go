package auth_test

import (
	"fmt"
	"testing"

	"pulse/internal/apperr"
	"pulse/internal/auth"
	"pulse/internal/channels"
	pulsedb "pulse/internal/db"
	"pulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) (*auth.Gate, *channels.Repo) {
	t.Helper()
	db, err := pulsedb.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Channel{}, &models.ChannelField{}, &models.Record{}))
	repo := channels.NewRepo(db)
	return auth.NewGate(repo), repo
}

func TestGateReadWithSession(t *testing.T) {
	gate, repo := newGate(t)
	ch, err := repo.Create("owner-1", channels.CreateInput{Name: "ch"})
	require.NoError(t, err)

	got, err := gate.Read("owner-1", true, ch.UUID, "")
	require.NoError(t, err)
	assert.Equal(t, ch.UUID, got.UUID)

	// чужая сессия: NotFound, существование канала не раскрывается
	_, err = gate.Read("owner-2", true, ch.UUID, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGateReadSessionWinsOverKey(t *testing.T) {
	gate, repo := newGate(t)
	ch, err := repo.Create("owner-1", channels.CreateInput{Name: "ch"})
	require.NoError(t, err)

	// сессия + ключ одновременно: решает сессия, ключ (даже мусорный)
	// не участвует
	got, err := gate.Read("owner-1", true, ch.UUID, "garbage")
	require.NoError(t, err)
	assert.Equal(t, ch.UUID, got.UUID)
}

func TestGateReadWithReadKey(t *testing.T) {
	gate, repo := newGate(t)
	ch, err := repo.Create("owner-1", channels.CreateInput{Name: "ch"})
	require.NoError(t, err)
	key, err := repo.GenerateReadKey("owner-1", ch.UUID)
	require.NoError(t, err)

	got, err := gate.Read("", false, ch.UUID, key)
	require.NoError(t, err)
	assert.Equal(t, ch.UUID, got.UUID)
}

func TestGateReadRejections(t *testing.T) {
	gate, repo := newGate(t)
	ch, err := repo.Create("owner-1", channels.CreateInput{Name: "ch"})
	require.NoError(t, err)

	// ни сессии, ни ключа
	_, err = gate.Read("", false, ch.UUID, "")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	// write-ключ не даёт чтения
	_, err = gate.Read("", false, ch.UUID, ch.WriteAPIKey)
	require.ErrorIs(t, err, apperr.ErrInvalidKey)

	// канал без read-ключа недостижим по этому пути в принципе
	_, err = gate.Read("", false, ch.UUID, "0123456789abcdef0123456789abcdef")
	require.ErrorIs(t, err, apperr.ErrInvalidKey)
}

func TestGateWrite(t *testing.T) {
	gate, repo := newGate(t)
	ch, err := repo.Create("owner-1", channels.CreateInput{Name: "ch"})
	require.NoError(t, err)
	readKey, err := repo.GenerateReadKey("owner-1", ch.UUID)
	require.NoError(t, err)

	got, err := gate.Write(ch.WriteAPIKey)
	require.NoError(t, err)
	assert.Equal(t, ch.UUID, got.UUID)

	// read-ключ не пишет
	_, err = gate.Write(readKey)
	require.ErrorIs(t, err, apperr.ErrInvalidKey)

	_, err = gate.Write("")
	require.ErrorIs(t, err, apperr.ErrInvalidKey)
}
