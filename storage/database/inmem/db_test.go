package inmemdb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
)

func TestDB_WithinTx(t *testing.T) {
	db := Open()
	repo := NewDojoRepository(db)
	ctx := context.Background()

	centro, err := repo.CreateDojo(ctx, dojo.Dojo{Name: "Ki Aikido Centro"})
	require.NoError(t, err)

	t.Run("rollback", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := db.WithinTx(ctx, func(exec core.DBExecutor) error {
			if _, err := repo.CreateDojo(ctx, dojo.Dojo{Name: "Ki Aikido Norte"}, exec); err != nil {
				return err
			}
			centro.Address = "Rua das Flores 10"
			if _, err := repo.UpdateDojo(ctx, centro, exec); err != nil {
				return err
			}
			return errBoom
		})
		assert.Equal(t, errBoom, err)

		dojos, err := repo.QueryDojos(ctx, nil)
		require.NoError(t, err)
		require.Len(t, dojos, 1)
		assert.Empty(t, dojos[0].Address)
	})

	t.Run("commit", func(t *testing.T) {
		err := db.WithinTx(ctx, func(exec core.DBExecutor) error {
			_, err := repo.CreateDojo(ctx, dojo.Dojo{Name: "Ki Aikido Sul"}, exec)
			return err
		})
		require.NoError(t, err)

		d, err := repo.GetDojoByName(ctx, "ki aikido sul")
		require.NoError(t, err)
		assert.Equal(t, 3, d.ID) // keys are not reused after a rollback
	})

	t.Run("flush", func(t *testing.T) {
		db.Flush()
		_, err := repo.GetDojoByID(ctx, centro.ID)
		assert.Equal(t, dojo.ErrNotFound, err)
	})
}
