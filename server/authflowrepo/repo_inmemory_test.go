package authflowrepo_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/jrsteele09/go-todo-spa/server/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	t.Run("stored copy is isolated", func(t *testing.T) {
		repo := authflowrepo.NewInMemoryRepo()
		flow := &authflowrepo.AuthFlowState{Nonce: "n1", CodeVerifier: "v1", ReturnURL: "/todos", CreatedAt: time.Now()}
		require.NoError(t, repo.Upsert("state-1", flow))

		flow.Nonce = "changed"
		got, err := repo.Get("state-1")
		require.NoError(t, err)
		require.Equal(t, "n1", got.Nonce)
	})

	t.Run("take is single use", func(t *testing.T) {
		repo := authflowrepo.NewInMemoryRepo()
		require.NoError(t, repo.Upsert("state-1", &authflowrepo.AuthFlowState{Nonce: "n1"}))

		got, err := repo.Take("state-1")
		require.NoError(t, err)
		require.Equal(t, "n1", got.Nonce)

		_, err = repo.Take("state-1")
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("empty arguments", func(t *testing.T) {
		repo := authflowrepo.NewInMemoryRepo()
		require.Error(t, repo.Upsert("", &authflowrepo.AuthFlowState{}))
		require.Error(t, repo.Upsert("state-1", nil))
		_, err := repo.Get("")
		require.Error(t, err)
		require.Error(t, repo.Delete(""))
		_, err = repo.Take("")
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("delete expired", func(t *testing.T) {
		repo := authflowrepo.NewInMemoryRepo()
		now := time.Now()
		require.NoError(t, repo.Upsert("old", &authflowrepo.AuthFlowState{CreatedAt: now.Add(-time.Hour)}))
		require.NoError(t, repo.Upsert("new", &authflowrepo.AuthFlowState{CreatedAt: now}))

		require.Equal(t, 1, repo.DeleteExpired(now.Add(-10*time.Minute)))
		_, err := repo.Get("old")
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
		_, err = repo.Get("new")
		require.NoError(t, err)
	})
}
