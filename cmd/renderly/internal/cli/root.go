// Package cli implements the renderly command line: rendering, previewing,
// snapshotting and diffing project files against the block catalog.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-renderly"
	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/di"
	"github.com/goliatone/go-renderly/internal/logging/console"
)

// EnvPrefix namespaces environment overrides, e.g. RENDERLY_CACHE_PROVIDER.
const EnvPrefix = "RENDERLY"

type app struct {
	v              *viper.Viper
	cfgFile        string
	definitionsDir string
	logLevel       string
	fallbackLocale string
	stdout         io.Writer
	stderr         io.Writer
	module         *renderly.Module
}

// NewRootCommand builds the renderly command tree writing to stdout and
// stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "renderly",
		Short:         "Render block-based projects into standalone HTML documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.module.Close()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml or json); RENDERLY_CONFIG_FILE also works")
	flags.StringVar(&a.definitionsDir, "definitions", "", "directory of block definition files (*.md) registered on top of the built-ins")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.fallbackLocale, "fallback-locale", "", "locale used when a project configures none")

	root.AddCommand(
		a.renderCommand(),
		a.previewCommand(),
		a.publishCommand(),
		a.snapshotCommand(),
		a.importCommand(),
		a.diffCommand(),
		a.catalogCommand(),
		a.revisionCommand(),
		a.watchCommand(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	var opts []di.Option
	if strings.EqualFold(strings.TrimSpace(cfg.Logging.Provider), "console") {
		// stdout carries documents, so console logs go to stderr.
		consoleOpts := console.Options{Writer: a.stderr}
		level, ok := console.ParseLevel(cfg.Logging.Level)
		if !ok {
			level = console.LevelWarn
		}
		consoleOpts.MinLevel = &level
		opts = append(opts, di.WithLoggerProvider(console.NewProvider(consoleOpts)))
	}

	module, err := renderly.New(cfg, opts...)
	if err != nil {
		return err
	}
	a.module = module
	return a.loadDefinitions(ctx)
}

func (a *app) loadConfig() (renderly.Config, error) {
	cfg := renderly.DefaultConfig()
	v := a.v

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindConfigKeys(v)

	path := a.cfgFile
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".renderly")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.fallbackLocale != "" {
		cfg.FallbackLocale = a.fallbackLocale
	}
	return cfg, nil
}

// bindConfigKeys registers every config key so AutomaticEnv can resolve it
// during Unmarshal even when no config file mentions it.
func bindConfigKeys(v *viper.Viper) {
	for _, key := range []string{
		"fallback_locale",
		"render.max_list_items", "render.sanitize_rich_text", "render.placeholder_hint", "render.validate_payloads",
		"publisher.footer_text", "publisher.cache_documents", "publisher.cache_ttl",
		"cache.provider", "cache.redis_addr", "cache.redis_password", "cache.redis_db", "cache.key_prefix",
		"storage.provider", "storage.dialect", "storage.dsn", "storage.cache_repositories",
		"logging.provider", "logging.level", "logging.format", "logging.add_source", "logging.focus",
	} {
		_ = v.BindEnv(key)
	}
}

func (a *app) loadDefinitions(ctx context.Context) error {
	if a.definitionsDir == "" {
		return nil
	}
	defs, err := blocks.LoadDefinitions(os.DirFS(a.definitionsDir), "*.md")
	if err != nil {
		return err
	}
	for _, def := range defs {
		if _, err := a.module.RegisterDefinition(ctx, def); err != nil {
			return fmt.Errorf("register %s: %w", def.Key, err)
		}
	}
	return nil
}

func (a *app) writeOutput(path, content string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(a.stdout, content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
