package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/autoservice/internal/client/session"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errAuthFailed = errors.New("authentication failed")

// Register prompts for the account details and creates the account. On
// success the session store signs the new user in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	firstName, err := getSimpleText(a.reader, "Enter first name", a.out)
	if err != nil {
		return err
	}
	lastName, err := getSimpleText(a.reader, "Enter last name", a.out)
	if err != nil {
		return err
	}

	res := a.sessions.Register(ctx, session.RegisterRequest{
		Email:     email,
		Password:  string(password),
		FirstName: firstName,
		LastName:  lastName,
	})
	if !res.Success {
		fmt.Fprintf(a.out, "Registration failed: %s\n", res.Error)
		return fmt.Errorf("%w: %s", errAuthFailed, res.Error)
	}
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	res := a.sessions.Login(ctx, email, string(password))
	if !res.Success {
		fmt.Fprintf(a.out, "Login failed: %s\n", res.Error)
		return fmt.Errorf("%w: %s", errAuthFailed, res.Error)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.sessions.Logout(ctx)
	return nil
}
