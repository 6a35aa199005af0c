package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(t.Context(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestUsage(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, args := range [][]string{nil, {"help"}, {"frobnicate"}} {
		if _, err := runCLI(t, args...); !errors.Is(err, errUsage) {
			t.Errorf("%v: expected usage error, got %v", args, err)
		}
	}
}

func TestCommandsAgainstMemoryStore(t *testing.T) {
	t.Chdir(t.TempDir())
	mem := []string{"--driver", "memory", "--log-level", "error"}

	out, err := runCLI(t, append([]string{"add-class"}, append(mem, "Period", "5")...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "cls_") || !strings.Contains(out, "Period 5") {
		t.Errorf("unexpected add-class output %q", out)
	}

	out, err = runCLI(t, append([]string{"classes"}, mem...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "ID") {
		t.Errorf("unexpected classes output %q", out)
	}

	out, err = runCLI(t, append([]string{"migrate"}, mem...)...)
	if err != nil || !strings.Contains(out, "memory") {
		t.Errorf("migrate: %q, %v", out, err)
	}
}

func TestCommandValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	mem := []string{"--driver", "memory", "--log-level", "error"}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"students without class", []string{"students"}, "--class"},
		{"add with bad student", []string{"add", "--student", "cls_01h2xcejqtf2nbrexx3vqjhp41", "--minutes", "5"}, "--student"},
		{"unknown student", []string{"serve45", "--student", "stu_01h2xcejqtf2nbrexx3vqjhp41"}, "student not found"},
		{"last for unknown student", []string{"last", "--student", "stu_01h2xcejqtf2nbrexx3vqjhp41"}, "student not found"},
		{"reconcile without target", []string{"reconcile"}, "--student or --class"},
		{"blank class name", []string{"add-class"}, "class name is required"},
		{"unknown driver", []string{"classes", "--driver", "cassandra"}, "unknown store driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(append([]string{}, tt.args...), mem...)
			if tt.name == "unknown driver" {
				args = tt.args
			}
			_, err := runCLI(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
