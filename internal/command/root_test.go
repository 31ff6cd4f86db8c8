package command

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandVersion(t *testing.T) {
	cmd := NewRootCmd("test")

	output, err := executeCommand(cmd, "--version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(output, "socialdash version test") {
		t.Fatalf("expected version output, got %q", output)
	}
}

func TestRootCommandListsSubcommands(t *testing.T) {
	output, err := executeCommand(NewRootCmd("test"), "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"login", "logout", "list", "unread", "read", "read-all", "rm", "watch", "dashboard", "devserver", "config"} {
		if !strings.Contains(output, name) {
			t.Fatalf("expected %q in help output:\n%s", name, output)
		}
	}
}

func TestNormalizeIDs(t *testing.T) {
	got := normalizeIDs([]string{"#a", "b, c", "a", " ", "c"})
	want := []string{"a", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}
