package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// runMain runs main in a subprocess with args and an empty home directory.
func runMain(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	home := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^TestMain_Subprocess$")
	cmd.Dir = home
	cmd.Env = append(os.Environ(),
		"CWKEYER_MAIN_ARGS="+strings.Join(args, " "),
		"HOME="+home,
		"XDG_CONFIG_HOME=",
	)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.String(), errOut.String(), err
}

// TestMain_Subprocess is the child side of runMain.
func TestMain_Subprocess(t *testing.T) {
	args, ok := os.LookupEnv("CWKEYER_MAIN_ARGS")
	if !ok {
		t.Skip("only runs as a subprocess")
	}
	os.Args = append([]string{"cwkeyer"}, strings.Fields(args)...)
	main()
}

func TestMain_Table(t *testing.T) {
	stdout, stderr, err := runMain(t, "table")
	if err != nil {
		t.Fatalf("cwkeyer table error = %v, stderr: %s", err, stderr)
	}
	for _, want := range []string{"  1  E  .\n", "  2  T  -\n", " 75  ?  ..--..\n"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("table output missing %q", want)
		}
	}
}

func TestMain_UnknownCommandExits(t *testing.T) {
	_, stderr, err := runMain(t, "bogus")

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("cwkeyer bogus error = %v, want exit error", err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("stderr = %q, want it to mention the unknown command", stderr)
	}
}
