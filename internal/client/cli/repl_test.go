package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
}

func (f *fakeExec) record(call string) error {
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeExec) isLoggedIn() bool                 { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error { return f.record("register") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) List(ctx context.Context, name string) error { return f.record("list " + name) }
func (f *fakeExec) Search(ctx context.Context, name, q string) error {
	return f.record(fmt.Sprintf("search %s %q", name, q))
}
func (f *fakeExec) Show(ctx context.Context, name string, id int64) error {
	return f.record(fmt.Sprintf("show %s %d", name, id))
}
func (f *fakeExec) Add(ctx context.Context, name string) error { return f.record("add " + name) }
func (f *fakeExec) Edit(ctx context.Context, name string, id int64) error {
	return f.record(fmt.Sprintf("edit %s %d", name, id))
}
func (f *fakeExec) Delete(ctx context.Context, name string, id int64) error {
	return f.record(fmt.Sprintf("delete %s %d", name, id))
}
func (f *fakeExec) Records(ctx context.Context) error     { return f.record("records") }
func (f *fakeExec) Parts(ctx context.Context) error       { return f.record("parts") }
func (f *fakeExec) Stats(ctx context.Context) error       { return f.record("stats") }
func (f *fakeExec) Profile(ctx context.Context) error     { return f.record("profile") }
func (f *fakeExec) EditProfile(ctx context.Context) error { return f.record("editprofile") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, fmt.Sprintln(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	captureOutput(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"list customers",
		"login",
		"help",
		"l vehicles",
		"search customers jane doe",
		"show parts 12",
		"add suppliers",
		"edit services 3",
		"delete customers 7",
		"records",
		"parts",
		"stats",
		"profile",
		"editprofile",
		"logout",
		"exit",
		"list customers",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(input))

	assert.Equal(t, []string{
		"login",
		"list vehicles",
		`search customers "jane doe"`,
		"show parts 12",
		"add suppliers",
		"edit services 3",
		"delete customers 7",
		"records",
		"parts",
		"stats",
		"profile",
		"editprofile",
		"logout",
	}, exec.calls)
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	out := captureOutput(t)

	input := strings.NewReader("list\nshow customers\ndelete customers abc\nfoobar\nquit\n")
	exec := &fakeExec{loggedIn: true}

	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(input))

	assert.Empty(t, exec.calls)
	joined := strings.Join(*out, "")
	assert.Contains(t, joined, "Usage: list <collection>")
	assert.Contains(t, joined, "Usage: show <collection> <id>")
	assert.Contains(t, joined, "Invalid id: abc")
	assert.Contains(t, joined, "Unknown command: foobar")
	assert.Contains(t, joined, "Bye!")
}

func TestRunREPL_RequiresLogin(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("stats\nprofile")))

	assert.Empty(t, exec.calls)
	assert.Contains(t, strings.Join(*out, ""), "Please log in first.")
	assert.Equal(t, "autoservice> \n", (*out)[0])
}
