package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMigrate(t *testing.T) {
	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })

	var (
		gotCommand, gotDir string
		gotArgs            []string
	)
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		if command == "lol" {
			return errors.New(`"lol": no such command`)
		}
		return nil
	}

	db := new(sql.DB)
	assert.NoError(t, Migrate(db, "up-to", "2"))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, migrationsDir, gotDir)
	assert.Equal(t, []string{"2"}, gotArgs)

	err := Migrate(db, "lol")
	if assert.Error(t, err) {
		assert.Equal(t, `migrating database: "lol": no such command`, err.Error())
	}
}

func Test_isRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: true},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: true},
		{name: "lock not available", err: pkgerrors.Wrap(&pq.Error{Code: "55P03"}, "locking event"), want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}},
		{name: "not a pq error", err: errors.New("lol")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}
