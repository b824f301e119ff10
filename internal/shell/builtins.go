package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/smazurov/jobsh/internal/jobs"
)

// Builtin is a command run inside the shell process.
type Builtin struct {
	Name    string
	Usage   string
	Summary string
	run     func(ctx context.Context, args []string) (int, error)
}

// Invoke runs the builtin. args excludes the builtin's own name.
// The returned status becomes the shell's last status.
func (b Builtin) Invoke(ctx context.Context, args []string) (int, error) {
	return b.run(ctx, args)
}

func (s *Shell) registerBuiltins() {
	s.builtins = map[string]Builtin{}
	for _, b := range []Builtin{
		{Name: "exit", Usage: "exit [code]", Summary: "Leave the shell, hanging up or releasing every job", run: s.builtinExit},
		{Name: "cd", Usage: "cd [dir|-]", Summary: "Change the working directory, $HOME by default", run: s.builtinCd},
		{Name: "jobs", Usage: "jobs", Summary: "List jobs that have not been reaped yet", run: s.builtinJobs},
		{Name: "help", Usage: "help", Summary: "Show this list", run: s.builtinHelp},
	} {
		s.builtins[b.Name] = b
	}
}

// Lookup returns the builtin called name.
func (s *Shell) Lookup(name string) (Builtin, bool) {
	b, ok := s.builtins[name]
	return b, ok
}

func (s *Shell) builtinExit(_ context.Context, args []string) (int, error) {
	code := s.lastStatus
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 2, fmt.Errorf("exit: %s: numeric argument required", args[0])
		}
		code = n & 0xff
	default:
		return 1, errors.New("exit: too many arguments")
	}
	s.requestExit(code)
	return code, nil
}

func (s *Shell) builtinCd(_ context.Context, args []string) (int, error) {
	var dir string
	announce := false
	switch len(args) {
	case 0:
		dir = os.Getenv("HOME")
		if dir == "" {
			return 1, errors.New("cd: HOME not set")
		}
	case 1:
		dir = args[0]
		if dir == "-" {
			dir = os.Getenv("OLDPWD")
			if dir == "" {
				return 1, errors.New("cd: OLDPWD not set")
			}
			announce = true
		}
	default:
		return 1, errors.New("cd: too many arguments")
	}

	prev, prevErr := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return 1, fmt.Errorf("cd: %s: %w", dir, err)
	}
	if prevErr == nil {
		os.Setenv("OLDPWD", prev)
	}
	if cwd, err := os.Getwd(); err == nil {
		os.Setenv("PWD", cwd)
		dir = cwd
	}
	if announce {
		fmt.Fprintln(s.stdout, dir)
	}
	return 0, nil
}

func (s *Shell) builtinJobs(_ context.Context, args []string) (int, error) {
	if len(args) > 0 {
		return 2, errors.New("jobs: takes no arguments")
	}
	if err := jobs.WriteJobs(s.stdout, s.registry.Jobs()); err != nil {
		return 1, fmt.Errorf("jobs: %w", err)
	}
	return 0, nil
}

func (s *Shell) builtinHelp(_ context.Context, _ []string) (int, error) {
	names := make([]string, 0, len(s.builtins))
	for name := range s.builtins {
		names = append(names, name)
	}
	slices.Sort(names)

	fmt.Fprintln(s.stdout, "jobsh builtins:")
	for _, name := range names {
		b := s.builtins[name]
		fmt.Fprintf(s.stdout, "  %-12s %s\n", b.Usage, b.Summary)
	}
	fmt.Fprintln(s.stdout, "Anything else runs as a program; a trailing & runs it in the background.")
	return 0, nil
}
