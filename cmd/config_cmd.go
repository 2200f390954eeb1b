package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/regform/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a dotted configuration key, keeping the file's comments.

Examples:
  regform config set api.base_url http://localhost:8080
  regform config set form.debounce 500ms`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configPathCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configFilePath is the file initConfig loaded, or the local default.
func configFilePath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return localConfigPath
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if !viper.IsSet(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	path := configFilePath()
	if err := config.SaveValue(path, key, value); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}

	// Re-read so an invalid value is reported now rather than at next start.
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("re-reading %s: %w", path, err)
	}
	var updated config.Config
	if err := v.Unmarshal(&updated); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%s was saved but is invalid: %w", key, err)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", key, value, path)
	return err
}
