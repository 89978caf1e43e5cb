package signin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillchisel/internal/identity"
)

type fakeAuth struct {
	signInErr   error
	registerErr error
	fedErr      error
	calls       []string
}

func (f *fakeAuth) SignIn(_ context.Context, _, email, _ string) (string, error) {
	f.calls = append(f.calls, "signin:"+email)
	if f.signInErr != nil {
		return "", f.signInErr
	}
	return "tok-signin", nil
}

func (f *fakeAuth) CreateAccount(_ context.Context, _, email, _ string) (string, error) {
	f.calls = append(f.calls, "register:"+email)
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return "tok-register", nil
}

func (f *fakeAuth) CompleteFederated(_ context.Context, _, state, _ string) (string, error) {
	f.calls = append(f.calls, "federated:"+state)
	if f.fedErr != nil {
		return "", f.fedErr
	}
	return "tok-federated", nil
}

func TestSubmitSignInFailureStripsPrefixAndKeepsDrafts(t *testing.T) {
	auth := &fakeAuth{signInErr: identity.ErrInvalidCredential}
	f := &Form{Email: "ada@example.com", Password: "nope", Error: "stale"}

	token, err := f.Submit(context.Background(), auth, "c1")
	require.Error(t, err)
	assert.Empty(t, token)
	assert.Equal(t, "Error (auth/invalid-credential).", f.Error)
	assert.Equal(t, "ada@example.com", f.Email)
	assert.Equal(t, "nope", f.Password)
	assert.Equal(t, []string{"signin:ada@example.com"}, auth.calls)
}

func TestSubmitUsesModeAndLeavesFormOnSuccess(t *testing.T) {
	auth := &fakeAuth{}
	f := &Form{Email: "ada@example.com", Password: "secret1", Mode: ModeRegister, Error: "old"}

	token, err := f.Submit(context.Background(), auth, "c1")
	require.NoError(t, err)
	assert.Equal(t, "tok-register", token)
	assert.Empty(t, f.Error)
	assert.Equal(t, "secret1", f.Password)
	assert.Equal(t, ModeRegister, f.Mode)
}

func TestWeakPasswordMessage(t *testing.T) {
	auth := &fakeAuth{registerErr: identity.ErrWeakPassword}
	f := &Form{Mode: ModeRegister}
	_, _ = f.Submit(context.Background(), auth, "c1")
	assert.Equal(t, "Password should be at least 6 characters (auth/weak-password).", f.Error)
}

func TestNonIdentityErrorShownAsIs(t *testing.T) {
	auth := &fakeAuth{signInErr: errors.New("connection refused")}
	f := &Form{}
	_, _ = f.Submit(context.Background(), auth, "c1")
	assert.Equal(t, "connection refused", f.Error)
}

func TestToggleModeClearsErrorKeepsDrafts(t *testing.T) {
	f := &Form{Email: "a@b.co", Password: "pw", Error: "boom"}

	f.ToggleMode()
	assert.Equal(t, ModeRegister, f.Mode)
	assert.Empty(t, f.Error)
	assert.Equal(t, "a@b.co", f.Email)
	assert.Equal(t, "pw", f.Password)
	assert.Equal(t, "Join Us", f.Title())
	assert.Equal(t, "Create Account", f.SubmitLabel())
	assert.Equal(t, "Log In", f.ToggleLabel())

	f.ToggleMode()
	assert.Equal(t, ModeSignIn, f.Mode)
	assert.Equal(t, "Welcome Back", f.Title())
	assert.Equal(t, "Log In", f.SubmitLabel())
	assert.Equal(t, "Sign Up", f.ToggleLabel())
	assert.Equal(t, "Don't have an account?", f.TogglePrompt())
}

func TestFederated(t *testing.T) {
	auth := &fakeAuth{}
	f := &Form{Error: "old"}

	_, err := f.Federated(context.Background(), auth, "c1", "st", "", "access_denied")
	assert.ErrorIs(t, err, identity.ErrPopupClosed)
	assert.Equal(t, "Error (auth/popup-closed-by-user).", f.Error)
	assert.Empty(t, auth.calls)

	token, err := f.Federated(context.Background(), auth, "c1", "st", "code", "")
	require.NoError(t, err)
	assert.Equal(t, "tok-federated", token)
	assert.Empty(t, f.Error)

	auth.fedErr = identity.ErrInvalidState
	_, err = f.Federated(context.Background(), auth, "c1", "st", "code", "")
	require.Error(t, err)
	assert.Equal(t, "Error (auth/invalid-state).", f.Error)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeRegister, ParseMode("register"))
	assert.Equal(t, ModeSignIn, ParseMode("signin"))
	assert.Equal(t, ModeSignIn, ParseMode(""))
	assert.Equal(t, "register", ModeRegister.String())
}
