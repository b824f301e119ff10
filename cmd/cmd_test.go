package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/smazurov/jobsh/internal/config"
	"github.com/smazurov/jobsh/internal/version"
)

func newRoot(opts *config.Options) *cobra.Command {
	root := &cobra.Command{Use: "jobsh", SilenceUsage: true, SilenceErrors: true}
	config.RegisterFlags(root.PersistentFlags(), opts)
	root.AddCommand(CreateConfigCmd(opts), CreateVersionCmd())
	return root
}

func execute(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCmdPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobsh.toml")
	content := "[jobs]\nannounce_all = true\nkill_signal = \"KILL\"\n\n[shell]\nprompt = \"file> \"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JOBSH_PROMPT", "env> ")

	opts := config.DefaultOptions()
	out, err := execute(t, newRoot(&opts), "config", "--config", path, "--kill-signal", "HUP")
	if err != nil {
		t.Fatalf("config command failed: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "# "+path+"\n") {
		t.Errorf("output does not name the config file:\n%s", out)
	}

	var doc struct {
		Jobs struct {
			AnnounceAll bool   `toml:"announce_all"`
			KillSignal  string `toml:"kill_signal"`
		} `toml:"jobs"`
		Shell struct {
			Prompt string `toml:"prompt"`
		} `toml:"shell"`
		Logging struct {
			Level string `toml:"level"`
		} `toml:"logging"`
	}
	if err := toml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not TOML: %v\n%s", err, out)
	}
	if !doc.Jobs.AnnounceAll {
		t.Error("announce_all from file missing")
	}
	if doc.Jobs.KillSignal != "HUP" {
		t.Errorf("kill_signal = %q, want flag value HUP", doc.Jobs.KillSignal)
	}
	if doc.Shell.Prompt != "env> " {
		t.Errorf("prompt = %q, want env value", doc.Shell.Prompt)
	}
	if doc.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want default warn", doc.Logging.Level)
	}
}

func TestConfigCmdRejectsInvalid(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Config = filepath.Join(t.TempDir(), "absent.toml")
	_, err := execute(t, newRoot(&opts), "config", "--logging-level", "loud")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %v, want invalid config", err)
	}
}

func TestLoadOptionsDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "jobsh"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "jobsh", "config.toml"), []byte("[jobs]\nhangup_on_exit = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := config.DefaultOptions()
	if err := LoadOptions(nil, &opts); err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if opts.Config != filepath.Join(dir, "jobsh", "config.toml") {
		t.Errorf("Config = %q", opts.Config)
	}
	if !opts.HangupOnExit {
		t.Error("hangup_on_exit from the default file not applied")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, newRoot(new(config.Options)), "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version.Banner() {
		t.Errorf("version output = %q, want %q", out, version.Banner())
	}

	out, err = execute(t, newRoot(new(config.Options)), "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var info version.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version --json output is not JSON: %v\n%s", err, out)
	}
	if info.Version != version.Version {
		t.Errorf("Version = %q, want %q", info.Version, version.Version)
	}
}
