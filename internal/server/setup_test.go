package server

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSetup struct {
	required bool
	err      error
	got      string
}

func (f *fakeSetup) IsSetupRequired(ctx context.Context) (bool, error) {
	return f.required, f.err
}

func (f *fakeSetup) SetupMasterPassword(ctx context.Context, password string) error {
	if len(password) < 8 {
		return common.ErrValidation
	}
	f.got = password
	f.required = false
	return nil
}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	i := 0
	readPassword = func(fd int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		a := answers[i]
		i++
		return []byte(a), nil
	}
}

func TestRunSetup_OK(t *testing.T) {
	stubPasswords(t, "SecurePass123", "SecurePass123")
	svc := &fakeSetup{required: true}
	var out bytes.Buffer

	require.NoError(t, RunSetup(context.Background(), svc, &out))
	assert.Equal(t, "SecurePass123", svc.got)
	assert.Contains(t, out.String(), "Master password configured.")
	assert.NotContains(t, out.String(), "SecurePass123")
}

func TestRunSetup_Mismatch(t *testing.T) {
	stubPasswords(t, "SecurePass123", "SecurePass124")
	svc := &fakeSetup{required: true}

	err := RunSetup(context.Background(), svc, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Empty(t, svc.got)
}

func TestRunSetup_AlreadyConfigured(t *testing.T) {
	stubPasswords(t)
	var out bytes.Buffer

	require.NoError(t, RunSetup(context.Background(), &fakeSetup{}, &out))
	assert.Contains(t, out.String(), "already configured")
}

func TestRunSetup_Errors(t *testing.T) {
	stubPasswords(t)
	err := RunSetup(context.Background(), &fakeSetup{err: errors.New("db down")}, &bytes.Buffer{})
	assert.EqualError(t, err, "db down")

	err = RunSetup(context.Background(), &fakeSetup{required: true}, &bytes.Buffer{})
	assert.EqualError(t, err, "no more input")

	stubPasswords(t, "short", "short")
	err = RunSetup(context.Background(), &fakeSetup{required: true}, &bytes.Buffer{})
	assert.ErrorIs(t, err, common.ErrValidation)
}
