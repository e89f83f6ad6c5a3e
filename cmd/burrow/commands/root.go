package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dyluth/burrow/internal/config"
	"github.com/dyluth/burrow/internal/logging"
	"github.com/dyluth/burrow/internal/printer"
	"github.com/dyluth/burrow/pkg/assetdb"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var versionString = "dev"

// rootOptions holds the persistent flags. Values are read through viper so
// BURROW_* environment variables can stand in for flags.
type rootOptions struct {
	v *viper.Viper
}

func (o *rootOptions) configPath() string { return o.v.GetString("config") }
func (o *rootOptions) redisURL() string   { return o.v.GetString("redis-url") }
func (o *rootOptions) project() string    { return o.v.GetString("project") }
func (o *rootOptions) logLevel() string   { return o.v.GetString("log-level") }

// NewRootCmd builds the burrow command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:   "burrow",
		Short: "Burrow - subset loader for the asset pipeline",
		Long: `Burrow browses the subsets an asset has published to the pipeline's
Redis asset database. Subsets are grouped by a column of your choice,
filtered by family, and can be switched to any of their versions.`,
		Version: versionString,
		// Show help instead of silently succeeding
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	flags := root.PersistentFlags()
	flags.String("config", config.DefaultFileName, "Path to burrow.yml")
	flags.String("redis-url", "", "Asset database URL (overrides burrow.yml)")
	flags.String("project", "", "Project name (overrides burrow.yml)")
	flags.String("log-level", "", "Log level: error, warn, info, debug")

	for _, name := range []string{"config", "redis-url", "project", "log-level"} {
		_ = opts.v.BindPFlag(name, flags.Lookup(name))
	}
	opts.v.SetEnvPrefix("BURROW")
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()

	root.AddCommand(
		newInitCmd(opts),
		newDBCmd(opts),
		newSeedCmd(opts),
		newPublishCmd(opts),
		newListCmd(opts),
		newSetVersionCmd(opts),
		newHistoryCmd(opts),
		newWatchCmd(opts),
		newBrowseCmd(opts),
	)

	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// loadConfig reads burrow.yml, or builds a default config when the file is
// absent and a project was given, then applies flag overrides and configures
// logging.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.BurrowConfig, error) {
	path := o.configPath()

	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && o.project() != "":
		cfg = config.Default(o.project())
	case errors.Is(err, os.ErrNotExist):
		return nil, printer.Error(
			fmt.Sprintf("%s not found", path),
			"Burrow needs a project configuration to know which asset database to read.",
			[]string{
				"Create one:\n  burrow init <project>",
				"Or name the project directly:\n  burrow --project <project> ...",
			},
		)
	default:
		return nil, printer.Error(
			fmt.Sprintf("invalid %s", path),
			err.Error(),
			[]string{"Fix the configuration or recreate it:\n  burrow init --force <project>"},
		)
	}

	if p := o.project(); p != "" {
		cfg.Project = p
	}
	if u := o.redisURL(); u != "" {
		cfg.Redis.URL = u
	}
	if l := o.logLevel(); l != "" {
		cfg.Log.Level = l
	}
	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}

	if err := logging.Configure(cfg.Log.Level, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect opens the project's asset database and checks it answers.
func connect(ctx context.Context, cfg *config.BurrowConfig) (*assetdb.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, printer.Error(
			"invalid Redis URL",
			fmt.Sprintf("Cannot parse '%s': %v", cfg.Redis.URL, err),
			[]string{"Use the form redis://host:port"},
		)
	}

	client, err := assetdb.NewClient(redisOpts, cfg.Project)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"asset database not reachable",
			fmt.Sprintf("Failed to connect: %v", err),
			map[string]string{"URL": cfg.Redis.URL, "Project": cfg.Project},
			[]string{
				"Start the local database:\n  burrow db up",
				"Point at another server:\n  burrow --redis-url redis://host:6379 ...",
			},
		)
	}

	logging.New("cli").WithFields(logrus.Fields{
		"project": cfg.Project,
		"url":     cfg.Redis.URL,
	}).Debug("Connected to asset database")
	return client, nil
}
