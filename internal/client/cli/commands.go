package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

const pageSize = 10

var errUsage = errors.New("usage")

// Indirections over the input helpers so tests can feed answers.
var (
	getSimpleText   = GetSimpleText
	getOptionalText = GetOptionalText
	getPassword     = GetPassword
)

// Register prompts for email, username and password and creates an account.
// The new account is logged in right away.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.auth.Register(ctx, email, username, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered and logged in as %s\n", u.Username)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", u.Username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	u, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

// Users prints one page of accounts. args may hold the page number.
func (a *App) Users(ctx context.Context, args []string) error {
	page := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: users [page]", errUsage)
		}
		page = n
	}

	res, err := a.users.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	if len(res.Users) == 0 {
		fmt.Fprintln(a.out, "No users")
	} else {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tCREATED")
		for _, u := range res.Users {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt.Local().Format(time.DateTime))
		}
		tw.Flush()
	}

	p := res.Pagination
	fmt.Fprintf(a.out, "Page %d of %d, %d users total\n", p.Page, p.TotalPages, p.Total)
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: show <id>", errUsage)
	}

	u, err := a.users.Get(ctx, args[0])
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

// Update changes the logged-in user's profile. Every prompt may be left
// empty to keep the current value.
func (a *App) Update(ctx context.Context) error {
	var req models.UpdateUserRequest
	var err error

	if req.Email, err = getOptionalText(a.reader, "New email", a.out); err != nil {
		return err
	}
	if req.Username, err = getOptionalText(a.reader, "New username", a.out); err != nil {
		return err
	}
	password, err := getPassword(a.out, "New password (empty to keep)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	if len(password) > 0 {
		p := string(password)
		req.Password = &p
	}

	if req.Email == nil && req.Username == nil && req.Password == nil {
		fmt.Fprintln(a.out, "Nothing to update")
		return nil
	}

	u, err := a.users.Update(ctx, a.session.Identity().UserID, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Profile updated")
	a.printUser(u)
	return nil
}

// Delete removes an account, by default the logged-in one, after the user
// types "yes".
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: delete [id]", errUsage)
	}
	id := a.session.Identity().UserID
	if len(args) == 1 {
		id = args[0]
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete user %s? Type 'yes' to confirm", id), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.users.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "User deleted")
	return nil
}

func (a *App) printUser(u *models.User) {
	fmt.Fprintf(a.out, "ID:       %s\n", u.ID)
	fmt.Fprintf(a.out, "Username: %s\n", u.Username)
	fmt.Fprintf(a.out, "Email:    %s\n", u.Email)
	fmt.Fprintf(a.out, "Created:  %s\n", u.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(a.out, "Updated:  %s\n", u.UpdatedAt.Local().Format(time.DateTime))
}
