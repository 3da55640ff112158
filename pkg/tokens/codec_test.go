package tokens

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCodec(t *testing.T, typ Type, secret string, clk *fakeClock) *Codec {
	t.Helper()
	c, err := NewCodec(typ, []byte(secret), 15*time.Minute, WithClock(clk.Now))
	require.NoError(t, err)
	return c
}

func testIdentity() Identity {
	dept := uint(4)
	return Identity{UserID: 42, Email: "student1@sampleinstitute.edu", RoleID: 5, DepartmentID: &dept}
}

func TestCodec_IssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, TypeAccess, "access-secret", clk)

	token, exp, err := c.Issue(testIdentity())
	require.NoError(t, err)
	assert.True(t, exp.Equal(clk.t.Add(15*time.Minute)))

	clk.t = clk.t.Add(14 * time.Minute)
	claims, err := c.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity(), claims.Identity())
	assert.Equal(t, TypeAccess, claims.Type)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestCodec_Verify_NilDepartment(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	c := newTestCodec(t, TypeAccess, "access-secret", clk)

	token, _, err := c.Issue(Identity{UserID: 1, Email: "root@portal.local", RoleID: 1})
	require.NoError(t, err)

	claims, err := c.Verify(token)
	require.NoError(t, err)
	assert.Nil(t, claims.DepartmentID)
}

func TestCodec_Verify_Expired(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, TypeAccess, "access-secret", clk)

	token, _, err := c.Issue(testIdentity())
	require.NoError(t, err)

	for _, after := range []time.Duration{15 * time.Minute, 15*time.Minute + time.Second, 24 * time.Hour} {
		clk.t = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(after)
		claims, err := c.Verify(token)
		require.Error(t, err)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrExpired)
		assert.Equal(t, KindExpired, KindOf(err))
	}
}

func TestCodec_Verify_AnySingleByteFlipIsSignatureMismatch(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	c := newTestCodec(t, TypeAccess, "access-secret", clk)

	token, _, err := c.Issue(testIdentity())
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		repl := byte('A')
		if token[i] == 'A' {
			repl = 'B'
		}
		tampered := token[:i] + string(repl) + token[i+1:]

		_, err := c.Verify(tampered)
		require.Error(t, err, "byte %d", i)
		assert.Equal(t, KindSignatureMismatch, KindOf(err), "byte %d", i)
	}
}

func TestCodec_Verify_DistinctSecrets(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	access := newTestCodec(t, TypeAccess, "access-secret", clk)
	refresh := newTestCodec(t, TypeRefresh, "refresh-secret", clk)

	refreshToken, _, err := refresh.Issue(testIdentity())
	require.NoError(t, err)
	_, err = access.Verify(refreshToken)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	accessToken, _, err := access.Issue(testIdentity())
	require.NoError(t, err)
	_, err = refresh.Verify(accessToken)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestCodec_Verify_TypeConfusion(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	access := newTestCodec(t, TypeAccess, "shared", clk)
	refresh := newTestCodec(t, TypeRefresh, "shared", clk)

	token, _, err := refresh.Issue(testIdentity())
	require.NoError(t, err)

	_, err = access.Verify(token)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_Verify_Malformed(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	c := newTestCodec(t, TypeAccess, "access-secret", clk)

	for _, token := range []string{"", "abc", "a.b", "a.b.c.d", ".b.c", strings.Repeat(".", 2)} {
		_, err := c.Verify(token)
		require.Error(t, err, token)
		assert.ErrorIs(t, err, ErrMalformed, token)

		var ve *VerifyError
		assert.True(t, errors.As(err, &ve))
	}
}

func TestNewCodec_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(TypeAccess, nil, time.Minute)
	assert.Error(t, err)

	_, err = NewCodec(TypeAccess, []byte("s"), 0)
	assert.Error(t, err)

	_, err = NewCodec(Type("session"), []byte("s"), time.Minute)
	assert.Error(t, err)
}
