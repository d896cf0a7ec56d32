// Package cmd provides the CLI commands for the Taskboard client.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskboard/taskboard-cli/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Taskboard - project and task management client",
	Long: `Taskboard is a command-line client for the Taskboard project and task
management backend.

It handles sign-in with automatic token refresh, project and task CRUD,
threaded comments, and the admin user directory.

Quick start:
  1. Point the client at your backend:
       export TASKBOARD_API_URL=https://taskboard.example.com/api
  2. Sign in: taskboard login --email you@example.com
  3. List your projects: taskboard project list

Configuration:
  Config is loaded from taskboard.yaml in the current directory,
  $HOME/.taskboard/, or /etc/taskboard/.

  Environment variables can override config values with the TASKBOARD_ prefix.
  Example: TASKBOARD_API_URL=https://taskboard.example.com/api

Credentials are stored in $HOME/.taskboard/credentials.json by default;
alternative drivers (memory, redis) are available via credentials.driver.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./taskboard.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides config and environment)")
}

func initConfig() {
	config.InitViper(cfgFile)
	_ = viper.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))
}
