package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	err      error

	calls []string
}

func (f *fakeExec) record(name string, args ...string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error { return f.record("register") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Me(ctx context.Context) error { return f.record("me") }
func (f *fakeExec) Users(ctx context.Context, args []string) error {
	return f.record("users", args...)
}
func (f *fakeExec) Show(ctx context.Context, args []string) error {
	return f.record("show", args...)
}
func (f *fakeExec) Update(ctx context.Context) error { return f.record("update") }
func (f *fakeExec) Delete(ctx context.Context, args []string) error {
	return f.record("delete", args...)
}

func capturePrints(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	out := capturePrints(t)

	input := strings.Join([]string{
		"help",
		"me",
		"login",
		"help",
		"me",
		"users 2",
		"show abc",
		"",
		"update",
		"delete",
		"logout",
		"foobar",
		"exit",
		"me",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, rdr(input))

	assert.Equal(t, []string{"login", "me", "users 2", "show abc", "update", "delete", "logout"}, exec.calls)
	assert.Contains(t, *out, guestHelp)
	assert.Contains(t, *out, memberHelp)
	assert.Contains(t, *out, "Please log in first")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "ga status> ")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	capturePrints(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("me"))

	assert.Equal(t, []string{"me"}, exec.calls)
}

func TestRunREPL_ReportsErrors(t *testing.T) {
	out := capturePrints(t)

	exec := &fakeExec{loggedIn: true, err: errors.New("boom")}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("me\nquit\n"))

	assert.Contains(t, *out, "Error: boom")
}

func TestReport_Usage(t *testing.T) {
	out := capturePrints(t)

	report(fmt.Errorf("%w: show <id>", errUsage))
	report(nil)
	report(fmt.Errorf("refresh: %w", context.Canceled))

	assert.Equal(t, []string{"Usage: show <id>"}, *out)
}
