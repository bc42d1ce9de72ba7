package joincode_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talimuddin/roomhub/internal/joincode"
)

func TestNew_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := joincode.New()
		require.NoError(t, err)
		assert.Len(t, code, joincode.Length)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(joincode.Alphabet, ch),
				"code %q contains %q outside the alphabet", code, ch)
		}
	}
}

func TestNew_ExcludesAmbiguousSymbols(t *testing.T) {
	for _, ch := range "0O1I" {
		assert.False(t, strings.ContainsRune(joincode.Alphabet, ch))
	}
}

func TestUnique_ReturnsFirstFreeCode(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, code string) (bool, error) {
		calls++
		return false, nil
	}

	code, err := joincode.Unique(context.Background(), exists)
	require.NoError(t, err)
	assert.Len(t, code, joincode.Length)
	assert.Equal(t, 1, calls)
}

func TestUnique_RetriesOnCollision(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, code string) (bool, error) {
		calls++
		// First two candidates collide.
		return calls <= 2, nil
	}

	code, err := joincode.Unique(context.Background(), exists)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 3, calls)
}

func TestUnique_GivesUpWhenSpaceExhausted(t *testing.T) {
	exists := func(ctx context.Context, code string) (bool, error) {
		return true, nil
	}

	_, err := joincode.Unique(context.Background(), exists)
	assert.Error(t, err)
}

func TestUnique_PropagatesLookupError(t *testing.T) {
	boom := errors.New("connection refused")
	exists := func(ctx context.Context, code string) (bool, error) {
		return false, boom
	}

	_, err := joincode.Unique(context.Background(), exists)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
