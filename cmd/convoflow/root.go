package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/convoflow/convoflow/internal/store"
)

// Shared dependencies, initialized in cobra.OnInitialize.
var dataStore store.Store

var rootCmd = &cobra.Command{
	Use:   "convoflow",
	Short: "Conversational form collection backed by a language model",
	Long: `convoflow collects structured form answers through natural conversation.
It serves an HTTP API for hosting applications and a terminal chat mode
for trying forms locally.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/convoflow/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database")
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".config", "convoflow"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CONVOFLOW")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}

	if viper.GetString("db") == "" {
		home, _ := os.UserHomeDir()
		viper.SetDefault("db", filepath.Join(home, ".local", "share", "convoflow", "convoflow.db"))
	}
}

func initDeps() {
	s, err := store.NewSQLiteStore(viper.GetString("db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	if err := s.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error migrating database: %v\n", err)
		os.Exit(1)
	}
	dataStore = s
}
