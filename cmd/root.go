package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/regform/internal/apiclient"
	"github.com/zjrosen/regform/internal/config"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/tracing"
	"github.com/zjrosen/regform/internal/ui/regform"
	"github.com/zjrosen/regform/internal/ui/styles"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const (
	localConfigPath = ".regform/config.yaml"
	envPrefix       = "REGFORM"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "regform",
	Short: "A terminal registration form",
	Long: `A terminal form that registers a username and a country against a
registration API. The username is checked for availability as you type.

Run 'regform serve' to start a local development backend.`,
	Version:       version,
	SilenceUsage:  true,
	RunE:          runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .regform/config.yaml or ~/.config/regform/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "",
		"registration API base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write a debug log (path from REGFORM_LOG, default debug.log)")

	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("form.debounce", d.Form.Debounce)
	v.SetDefault("form.username_max_length", d.Form.UsernameMaxLength)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("server.countries_file", d.Server.CountriesFile)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("theme.highlight", d.Theme.Highlight)
	v.SetDefault("theme.subtle", d.Theme.Subtle)
	v.SetDefault("theme.error", d.Theme.Error)
	v.SetDefault("theme.success", d.Theme.Success)
}

func initConfig() {
	setDefaults(viper.GetViper())

	// REGFORM_API_BASE_URL, REGFORM_FORM_DEBOUNCE, ...
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .regform/config.yaml (current directory)
		// 2. ~/.config/regform/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "regform"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .regform/config.yaml
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// setupLogging enables the debug log when --debug or REGFORM_DEBUG is set.
// REGFORM_LOG_LEVEL raises the threshold above debug.
// The returned cleanup is never nil.
func setupLogging(prefix string) (func(), error) {
	if !debugFlag && os.Getenv(envPrefix+"_DEBUG") == "" {
		return func() {}, nil
	}
	logPath := os.Getenv(envPrefix + "_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	level, err := log.ParseLevel(os.Getenv(envPrefix + "_LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	cleanup, err := log.Open(logPath, prefix, level)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info(log.CatConfig, "regform starting", "level", level, "logPath", logPath, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// setupTracing builds the tracer provider. The file exporter falls back to
// the per-user traces path.
func setupTracing() (*tracing.Provider, error) {
	tc := cfg.Tracing
	if tc.Enabled && tc.Exporter == tracing.ExporterFile && tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tc)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return provider, nil
}

func shutdownTracing(p *tracing.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to flush traces", err)
	}
}

func newClient(p *tracing.Provider) (*apiclient.Client, error) {
	if err := config.ValidateAPI(cfg.API); err != nil {
		return nil, fmt.Errorf("invalid api configuration: %w", err)
	}
	return apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithTracer(p.Tracer()),
	)
}

func newSession(api registration.API, p *tracing.Provider) *registration.Session {
	return registration.NewSession(api,
		registration.WithDebounce(cfg.Form.Debounce),
		registration.WithUsernameMaxLength(cfg.Form.UsernameMaxLength),
		registration.WithTracer(p.Tracer()),
	)
}

func runApp(_ *cobra.Command, _ []string) error {
	if err := config.ValidateForm(cfg.Form); err != nil {
		return fmt.Errorf("invalid form configuration: %w", err)
	}
	if err := config.ValidateTracing(cfg.Tracing); err != nil {
		return fmt.Errorf("invalid tracing configuration: %w", err)
	}

	cleanupLog, err := setupLogging("regform")
	if err != nil {
		return err
	}
	defer cleanupLog()

	provider, err := setupTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing(provider)

	client, err := newClient(provider)
	if err != nil {
		return err
	}

	styles.ApplyTheme(cfg.Theme.Highlight, cfg.Theme.Subtle, cfg.Theme.Error, cfg.Theme.Success)
	zone.NewGlobal()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := newSession(client, provider)
	defer session.Close()

	p := tea.NewProgram(
		regform.New(ctx, session),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
