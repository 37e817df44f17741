package main

import (
	"github.com/spf13/cobra"

	"github.com/Sanny1998/Virtual-chef/internal/config"
)

// flags holds command-line overrides. Only flags the user actually set
// replace config values.
type flags struct {
	configPath  string
	dotenv      string
	store       string
	dbPath      string
	redisAddr   string
	userID      string
	name        string
	verbose     bool
	quiet       bool
	logFile     string
	metricsAddr string
	trace       bool
	noAI        bool
	guardRules  string
	plain       bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "virtualchef",
		Short: "Virtual Chef - a step-by-step cooking assistant",
		Long: "Virtual Chef asks about your preferences, suggests a recipe that fits them " +
			"and guides you through it step by step, with timers for the steps that need one.",
		Version: Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, f)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default .virtualchef/config.yaml, or $VIRTUALCHEF_CONFIG)")
	pf.StringVar(&f.dotenv, "env-file", ".env", "dotenv file to load before reading the environment")
	pf.StringVar(&f.store, "store", "", "storage backend: memory, sqlite or redis")
	pf.StringVar(&f.dbPath, "db", "", "SQLite database path")
	pf.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for the redis backend")
	pf.StringVar(&f.userID, "user", "", "user ID (default from config, or a random one)")
	pf.BoolVar(&f.verbose, "verbose", false, "enable debug logging")
	pf.BoolVar(&f.quiet, "quiet", false, "disable all logging")
	pf.StringVar(&f.logFile, "log-file", "", "log file (\"stderr\" logs to the console)")

	fl := root.Flags()
	fl.StringVar(&f.name, "name", "", "your name, saved to your profile")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	fl.BoolVar(&f.trace, "trace", false, "write turn traces to the log")
	fl.BoolVar(&f.noAI, "no-ai", false, "use the built-in recipe catalog even if an OpenAI key is set")
	fl.StringVar(&f.guardRules, "guard-rules", "", "YAML file with topic guard rules")
	fl.BoolVar(&f.plain, "plain", false, "line-based chat without the terminal UI")

	root.AddCommand(newTimersCmd(f))
	root.AddCommand(newDueCmd(f))
	return root
}

// load reads config, then applies flags the user set on cmd.
func (f *flags) load(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(f.dotenv); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("store") {
		cfg.Store.Backend = f.store
	}
	if changed("db") {
		cfg.Store.SQLitePath = f.dbPath
	}
	if changed("redis-addr") {
		cfg.Store.RedisAddr = f.redisAddr
	}
	if changed("user") {
		cfg.User.ID = f.userID
	}
	if changed("name") {
		cfg.User.Name = f.name
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("metrics-addr") {
		cfg.Observability.MetricsAddr = f.metricsAddr
	}
	if changed("trace") {
		cfg.Observability.Trace = f.trace
	}
	if changed("guard-rules") {
		cfg.Guard.RulesFile = f.guardRules
	}
	if f.noAI {
		cfg.OpenAI.APIKey = ""
	}
	switch {
	case f.quiet:
		cfg.Log.Level = "off"
	case f.verbose:
		cfg.Log.Level = "verbose"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
