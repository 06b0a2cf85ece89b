package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	rxkart "github.com/rxkart/rxkart-go"
)

var rootCmd = &cobra.Command{
	Use:   "rxkart",
	Short: "RxKart medicine e-commerce CLI",
	Long:  "Offline-capable CLI for the RxKart backend: browse the catalog, place orders, and run the seller approval queue.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/rxkart/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "backend API base URL")
	rootCmd.PersistentFlags().String("cache-path", "", "cache database file (default: ~/.local/share/rxkart/cache.db)")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging")

	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("cache_path", rootCmd.PersistentFlags().Lookup("cache-path"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RXKART")
	viper.AutomaticEnv()
	viper.SetDefault("api_url", "http://localhost:4000/api")
	viper.SetDefault("cache_path", rxkart.DefaultCachePath())

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rxkart")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "rxkart")
	}
	return ".rxkart"
}

func buildLogger() *zap.Logger {
	if viper.GetBool("verbose") {
		l, _ := zap.NewDevelopment()
		return l
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	l, _ := cfg.Build()
	return l
}

func newClient() (*rxkart.Client, error) {
	return rxkart.Open(
		viper.GetString("api_url"),
		rxkart.WithCachePath(viper.GetString("cache_path")),
		rxkart.WithLogger(buildLogger()),
	)
}
