package validation

import (
	"errors"
	"testing"

	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=10,username"`
	Slug     string `json:"slug" validate:"omitempty,slug"`
}

func fields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	return verr.Fields
}

func TestUsernameRule(t *testing.T) {
	v := New()

	for _, ok := range []string{"cook", "chef.john", "a@b", "x+y-z_1"} {
		assert.NoError(t, v.Struct(signup{Email: "a@example.com", Username: ok}), ok)
	}
	for _, bad := range []string{"with space", "semi;colon", "me", "Me"} {
		assert.Error(t, v.Struct(signup{Email: "a@example.com", Username: bad}), bad)
	}
}

func TestSlugRule(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(signup{Email: "a@example.com", Username: "cook", Slug: "main-course_2"}))
	assert.Error(t, v.Struct(signup{Email: "a@example.com", Username: "cook", Slug: "main course"}))
}

func TestFromBindingUsesJSONNames(t *testing.T) {
	err := New().Struct(signup{Email: "nope", Username: "averyverylongname"})
	require.Error(t, err)

	got := fields(t, FromBinding(err))
	assert.Equal(t, []string{"enter a valid email address"}, got["email"])
	assert.Equal(t, []string{"ensure this field has no more than 10 characters"}, got["username"])
}

func TestFromBindingOtherErrors(t *testing.T) {
	got := fields(t, FromBinding(errors.New("unexpected EOF")))
	assert.Equal(t, []string{"unexpected EOF"}, got[apperr.NonFieldErrors])
}
