package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/pivotscope/internal/config"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect, validate or scaffold configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.Default(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s default configuration written to %s\n", color.GreenString("✓"), args[0])
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for range and consistency problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			problems := cfg.Problems()
			if len(problems) == 0 {
				fmt.Fprintf(out, "%s configuration valid (grid size %d)\n",
					color.GreenString("✓"), cfg.WalkForward.Grid.Size(cfg.Strategy))
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(out, "%s %s\n", color.RedString("✗"), p)
			}
			return fmt.Errorf("%d configuration problems", len(problems))
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}
