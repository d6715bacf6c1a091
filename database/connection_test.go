package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_RequiresURL(t *testing.T) {
	pool, err := Connect(context.Background(), "")

	require.ErrorIs(t, err, ErrNoDatabaseURL)
	assert.Nil(t, pool)
}

func TestConnect_InvalidURL(t *testing.T) {
	pool, err := Connect(context.Background(), "postgres://user@localhost:5432/db?sslmode=bogus")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to create connection pool")
	assert.Nil(t, pool)
}
