package chat

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatID(t *testing.T) {
	a, b := uuid.NewString(), uuid.NewString()
	if b < a {
		a, b = b, a
	}

	t.Run("global", func(t *testing.T) {
		id, err := ParseChatID("global")
		require.NoError(t, err)
		assert.False(t, id.IsPrivate())
		assert.Equal(t, GlobalChatID, id.String())
		assert.True(t, id.Has(a))
	})

	t.Run("private is normalised", func(t *testing.T) {
		id, err := ParseChatID(b + ":" + a)
		require.NoError(t, err)
		assert.True(t, id.IsPrivate())
		assert.Equal(t, a+":"+b, id.String())

		partner, ok := id.PartnerOf(a)
		assert.True(t, ok)
		assert.Equal(t, b, partner)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"Global",
			a,
			a + ":" + a,
			a + ":" + b + ":" + a,
			a + ":not-a-uuid",
			a + "_" + b,
		} {
			_, err := ParseChatID(raw)
			assert.ErrorIs(t, err, ErrInvalidChatID, raw)
		}
	})
}

func TestParseChatID_RejectsNonCanonicalUUIDs(t *testing.T) {
	a := "0b6f4f7e-8c47-4d8c-9a43-2d0b7a1b1c11"
	b := "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"

	_, err := ParseChatID(a + ":" + b)
	require.NoError(t, err)

	for _, other := range []string{
		strings.ToUpper(b),
		strings.ReplaceAll(b, "-", ""),
		"{" + b + "}",
		"urn:uuid:" + b,
	} {
		_, err := ParseChatID(a + ":" + other)
		assert.ErrorIs(t, err, ErrInvalidChatID, other)

		_, err = NewPrivateChatID(a, other)
		assert.ErrorIs(t, err, ErrInvalidChatID, other)
	}
}

func TestChatID_Membership(t *testing.T) {
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	id, err := NewPrivateChatID(a, b)
	require.NoError(t, err)

	assert.True(t, id.Has(a))
	assert.True(t, id.Has(b))
	assert.False(t, id.Has(c))

	_, ok := id.PartnerOf(c)
	assert.False(t, ok)
	_, ok = Global().PartnerOf(a)
	assert.False(t, ok)
}

func TestContactPatterns(t *testing.T) {
	prefix, suffix := ContactPatterns("u1")
	assert.Equal(t, "u1:%", prefix)
	assert.Equal(t, "%:u1", suffix)
}
