package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/smazurov/jobsh/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "JOBSH_"

// DefaultPrompt expands to user@host:cwd$.
const DefaultPrompt = "{user}@{host}:{cwd}$ "

// Options for the shell - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c"`

	// Job control
	AnnounceAll        bool   `help:"Report every child exit, not only background ones" toml:"jobs.announce_all" env:"ANNOUNCE_ALL"`
	KillWithoutConfirm bool   `help:"Kill the foreground job on interrupt without asking" toml:"jobs.kill_without_confirm" env:"KILL_WITHOUT_CONFIRM"`
	KillSignal         string `help:"Signal sent to a foreground job on kill" default:"TERM" toml:"jobs.kill_signal" env:"KILL_SIGNAL"`
	HangupOnExit       bool   `help:"Send SIGHUP to background jobs on exit" toml:"jobs.hangup_on_exit" env:"HANGUP_ON_EXIT"`

	// Interactive shell
	Prompt      string `help:"Prompt template ({user}, {host}, {cwd})" default:"{user}@{host}:{cwd}$ " toml:"shell.prompt" env:"PROMPT"`
	WatchConfig bool   `help:"Reload the configuration file when it changes" toml:"shell.watch_config" env:"WATCH_CONFIG"`

	// Debug server
	DebugAddr string `help:"Listen address for the debug API, empty disables it" toml:"debug.addr" env:"DEBUG_ADDR"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"warn" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFile    string `help:"Write logs to this file instead of stderr" toml:"logging.file" env:"LOGGING_FILE"`
	LoggingJobs    string `help:"Launcher and foreground wait logging level" toml:"logging.jobs" env:"LOGGING_JOBS"`
	LoggingReaper  string `help:"Reaper logging level" toml:"logging.reaper" env:"LOGGING_REAPER"`
	LoggingSignals string `help:"Signal policy logging level" toml:"logging.signals" env:"LOGGING_SIGNALS"`
	LoggingShell   string `help:"Shell loop logging level" toml:"logging.shell" env:"LOGGING_SHELL"`
	LoggingAPI     string `help:"Debug API logging level" toml:"logging.api" env:"LOGGING_API"`
}

// DefaultOptions returns Options populated from the default tags.
func DefaultOptions() Options {
	var opts Options
	v := reflect.ValueOf(&opts).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if def, ok := t.Field(i).Tag.Lookup("default"); ok {
			// Default tags are static and always parse.
			_ = setFieldValueFromString(v.Field(i), def)
		}
	}
	return opts
}

// Validate reports option values the shell cannot start with.
func (o Options) Validate() error {
	if !logging.ValidLevel(o.LoggingLevel) {
		return fmt.Errorf("logging.level: unknown level %q", o.LoggingLevel)
	}
	switch strings.ToLower(o.LoggingFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", o.LoggingFormat)
	}
	for key, level := range o.moduleLevels() {
		if !logging.ValidLevel(level) {
			return fmt.Errorf("logging.%s: unknown level %q", key, level)
		}
	}
	return nil
}

// Logging converts the logging keys into a logging.Config.
func (o Options) Logging() logging.Config {
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		File:    o.LoggingFile,
		Modules: o.moduleLevels(),
	}
}

func (o Options) moduleLevels() map[string]string {
	modules := make(map[string]string)
	for module, level := range map[string]string{
		"jobs":    o.LoggingJobs,
		"reaper":  o.LoggingReaper,
		"signals": o.LoggingSignals,
		"shell":   o.LoggingShell,
		"api":     o.LoggingAPI,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return modules
}

// RegisterFlags binds one flag per tagged field of opts.
// Flag names are the kebab-cased field names, matching what LoadConfig skips.
func RegisterFlags(fs *pflag.FlagSet, opts *Options) {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		help, ok := field.Tag.Lookup("help")
		if !ok {
			continue
		}
		name := fieldNameToFlag(field.Name)
		short := field.Tag.Get("short")
		if env := field.Tag.Get("env"); env != "" {
			help += " [$" + EnvPrefix + env + "]"
		}

		switch ptr := v.Field(i).Addr().Interface().(type) {
		case *string:
			fs.StringVarP(ptr, name, short, *ptr, help)
		case *bool:
			fs.BoolVarP(ptr, name, short, *ptr, help)
		case *int:
			fs.IntVarP(ptr, name, short, *ptr, help)
		case *[]string:
			fs.StringSliceVarP(ptr, name, short, *ptr, help)
		}
	}
}

// Marshal renders opts as a TOML document grouped by table.
func Marshal(opts Options) ([]byte, error) {
	doc := make(map[string]any)
	v := reflect.ValueOf(opts)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		path := t.Field(i).Tag.Get("toml")
		if path == "" {
			continue
		}
		setNestedValue(doc, path, v.Field(i).Interface())
	}
	return toml.Marshal(doc)
}
