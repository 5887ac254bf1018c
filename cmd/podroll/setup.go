// ABOUTME: Config command for creating and locating the podroll config file
// ABOUTME: Writes a sample TOML or runs a bubbletea wizard for the common settings

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/config"
	"github.com/harper/podroll/internal/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the podroll config file",
	// Config management must work even when the current file fails to load.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		path = config.ExpandPath(path)

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check config: %w", err)
		}

		if err := config.CreateSample(path); err != nil {
			return err
		}
		fmt.Printf("Config saved to %s\n", path)
		return nil
	},
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure podroll interactively",
	Long:  "Interactive wizard to choose the database path, crawl workers and log level.",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	current, path, _, err := config.Load(configPath)
	if err != nil {
		// A broken file is replaced rather than blocking setup.
		fmt.Printf("Ignoring unreadable config: %v\n", err)
		fresh := config.Default()
		current = &fresh
		path = config.ExpandPath(configPath)
		if path == "" {
			path = config.DefaultConfigPath()
		}
	}

	defaults := config.Default()
	model := tui.NewSetupModel(
		tui.Answers{DBPath: current.Data.DBPath, Workers: current.Crawl.Workers, LogLevel: current.Log.Level},
		tui.Answers{DBPath: defaults.Data.DBPath, Workers: defaults.Crawl.Workers, LogLevel: defaults.Log.Level},
	)

	result, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup canceled.")
		return nil
	}

	answers := final.Result()
	current.Data.DBPath = config.ExpandPath(answers.DBPath)
	current.Crawl.Workers = answers.Workers
	current.Log.Level = answers.LogLevel

	if err := current.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Config saved to %s\n", path)
	return nil
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		fmt.Println(config.ExpandPath(path))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configSetupCmd, configPathCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")
}
