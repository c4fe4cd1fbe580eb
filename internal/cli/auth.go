package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// promptCredentials asks for a username and a password. The returned
// password slice must be wiped by the caller.
func (a *App) promptCredentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// Register creates an account. It does not log the user in.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.store.Register(ctx, userName, string(password)); err != nil {
		a.report(ctx, err)
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login authenticates and keeps the freshly issued session token.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.store.LogIn(ctx, userName, string(password))
	if err != nil {
		a.report(ctx, err)
		return err
	}

	a.startSession(u)
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// WhoAmI resolves the current session token to a user.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.currentUser(ctx)
	if err != nil {
		a.report(ctx, err)
		return err
	}
	if u == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (id %s, member since %s)\n", u.UserName, u.ID, u.CreatedAt.Format("2006-01-02"))
	return nil
}

// Logout rotates the session token on the server side and forgets it locally.
func (a *App) Logout(ctx context.Context) error {
	u, err := a.currentUser(ctx)
	if err != nil {
		a.report(ctx, err)
		return err
	}
	if u != nil {
		if err := a.store.LogOut(ctx, u); err != nil {
			a.report(ctx, err)
			return err
		}
	}
	a.endSession()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// ChangePassword sets a new password for the current user. Every other
// session of that user ends; this client keeps working with the new token.
func (a *App) ChangePassword(ctx context.Context) error {
	u, err := a.currentUser(ctx)
	if err != nil {
		a.report(ctx, err)
		return err
	}
	if u == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return common.ErrorUnauthorized
	}

	password, err := getPassword("Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.store.ChangePassword(ctx, u, string(password)); err != nil {
		a.report(ctx, err)
		return err
	}

	a.startSession(u)
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// currentUser returns the user behind the held session token. A token that
// no longer resolves (rotated elsewhere) ends the local session.
func (a *App) currentUser(ctx context.Context) (*models.User, error) {
	if a.sessionToken == "" {
		return nil, nil
	}
	u, err := a.store.FindBySessionToken(ctx, a.sessionToken)
	if err != nil {
		return nil, err
	}
	if u == nil {
		a.endSession()
	}
	return u, nil
}

func (a *App) startSession(u *models.User) {
	a.userName = u.UserName
	a.sessionToken = u.SessionToken
}

func (a *App) endSession() {
	a.userName = ""
	a.sessionToken = ""
}
