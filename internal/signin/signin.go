// Package signin models the sign-in and registration form.
package signin

import (
	"context"

	"skillchisel/internal/identity"
)

// Mode selects between signing in and registering.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeRegister
)

// ParseMode maps the form value back to a Mode; anything unknown is sign-in.
func ParseMode(s string) Mode {
	if s == "register" {
		return ModeRegister
	}
	return ModeSignIn
}

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "signin"
}

// Authenticator is the part of the identity provider the form talks to.
type Authenticator interface {
	SignIn(ctx context.Context, clientID, email, password string) (string, error)
	CreateAccount(ctx context.Context, clientID, email, password string) (string, error)
	CompleteFederated(ctx context.Context, clientID, state, code string) (string, error)
}

// Form holds the drafts and the error shown to the user. A successful
// submission leaves it untouched; the session gate switches views.
type Form struct {
	Email    string
	Password string
	Error    string
	Mode     Mode
}

// Submit signs in or registers according to Mode. On failure Error holds the
// provider message without its prefix and the drafts are kept. The returned
// token is only set on success.
func (f *Form) Submit(ctx context.Context, auth Authenticator, clientID string) (string, error) {
	f.Error = ""
	var (
		token string
		err   error
	)
	if f.Mode == ModeRegister {
		token, err = auth.CreateAccount(ctx, clientID, f.Email, f.Password)
	} else {
		token, err = auth.SignIn(ctx, clientID, f.Email, f.Password)
	}
	if err != nil {
		f.Fail(err)
		return "", err
	}
	return token, nil
}

// Federated completes a redirect sign-in. providerErr is the error the
// federated provider reported on the callback, if any.
func (f *Form) Federated(ctx context.Context, auth Authenticator, clientID, state, code, providerErr string) (string, error) {
	f.Error = ""
	if providerErr != "" {
		f.Fail(identity.ErrPopupClosed)
		return "", identity.ErrPopupClosed
	}
	token, err := auth.CompleteFederated(ctx, clientID, state, code)
	if err != nil {
		f.Fail(err)
		return "", err
	}
	return token, nil
}

// Fail shows err on the form.
func (f *Form) Fail(err error) {
	f.Error = identity.Message(err)
}

// ToggleMode switches between sign-in and register, clearing the error and
// keeping the drafts.
func (f *Form) ToggleMode() {
	if f.Mode == ModeRegister {
		f.Mode = ModeSignIn
	} else {
		f.Mode = ModeRegister
	}
	f.Error = ""
}

func (f *Form) Title() string {
	if f.Mode == ModeRegister {
		return "Join Us"
	}
	return "Welcome Back"
}

func (f *Form) Subtitle() string {
	if f.Mode == ModeRegister {
		return "Start your journey today"
	}
	return "Sign in to chisel your skills"
}

func (f *Form) SubmitLabel() string {
	if f.Mode == ModeRegister {
		return "Create Account"
	}
	return "Log In"
}

// TogglePrompt and ToggleLabel describe the link that flips the mode.
func (f *Form) TogglePrompt() string {
	if f.Mode == ModeRegister {
		return "Already have an account?"
	}
	return "Don't have an account?"
}

func (f *Form) ToggleLabel() string {
	if f.Mode == ModeRegister {
		return "Log In"
	}
	return "Sign Up"
}
