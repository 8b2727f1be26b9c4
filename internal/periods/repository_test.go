package periods

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/sekolah-admin/backend/pkg/apperr"
)

// Two activations of different rows at READ COMMITTED can both pass the
// NOT EXISTS guard; the periods_single_active unique index rejects the
// loser with a 23505, which must surface as a lost race.
func TestActivationRaceMapsUniqueViolation(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: "23505", ConstraintName: "periods_single_active"}
	assert.ErrorIs(t, activationRace(uniqueErr), apperr.ErrRaceLost)

	wrapped := fmt.Errorf("exec update: %w", uniqueErr)
	assert.ErrorIs(t, activationRace(wrapped), apperr.ErrRaceLost)
}

func TestActivationRacePassesOtherErrorsThrough(t *testing.T) {
	assert.NoError(t, activationRace(nil))

	fkErr := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(fkErr), activationRace(fkErr))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, activationRace(plain))

	assert.ErrorIs(t, activationRace(apperr.ErrNotFound), apperr.ErrNotFound)
}
