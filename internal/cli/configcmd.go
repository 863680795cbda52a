package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/leafshift/pkg/config"
	"github.com/matzehuels/leafshift/pkg/linac"
	"github.com/matzehuels/leafshift/pkg/mlc"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configSetCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration and linac machines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			linacs, err := cfg.OpenLinacStore()
			if err != nil {
				return err
			}
			if err := toml.NewEncoder(stdout).Encode(cfg); err != nil {
				return err
			}
			printNewline()
			printLinacs(linacs.Snapshot())
			return nil
		},
	}
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := c.loadConfig()
			if err != nil {
				return err
			}
			linacPath, err := cfg.LinacPath()
			if err != nil {
				return err
			}
			printKeyValue("config", path)
			printKeyValue("linacs", linacPath)
			return nil
		},
	}
}

// configSetCommand creates the "config set" subcommand.
func (c *CLI) configSetCommand() *cobra.Command {
	var serial, machine string

	cmd := &cobra.Command{
		Use:   "set [Millenium|HD]",
		Short: "Set the machine used for converted plans of one MLC family",
		Example: `  leafshift config set HD --serial 6119 --machine TrueBeam3
  leafshift config set Millenium --machine TrueBeam2`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{mlc.Millennium.Key(), mlc.HD.Key()},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			lang := c.language(cfg)

			f, err := mlc.ParseFamily(args[0])
			if err != nil {
				return c.localize(lang, err)
			}
			if serial == "" && machine == "" {
				return fmt.Errorf("nothing to set: use --serial and/or --machine")
			}

			store, err := cfg.OpenLinacStore()
			if err != nil {
				return err
			}
			m, err := store.Snapshot().Machine(f)
			if err != nil {
				return err
			}
			if serial != "" {
				m.DeviceSerialNumber = serial
			}
			if machine != "" {
				m.TreatmentMachineName = machine
			}
			next, err := store.Update(f, m)
			if err != nil {
				return c.localize(lang, err)
			}

			printLinacs(next)
			printSuccess("%s", c.tr.Text(lang, "ui.saved", store.Path()))
			return nil
		},
	}

	cmd.Flags().StringVar(&serial, "serial", "", "DeviceSerialNumber")
	cmd.Flags().StringVar(&machine, "machine", "", "TreatmentMachineName")

	return cmd
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				printInfo("Config already exists (use --force to overwrite)")
				printFile(path)
				return nil
			}
			if err := config.Save(path, config.Defaults()); err != nil {
				return err
			}
			printSuccess("Wrote default configuration")
			printFile(path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func printLinacs(cfg linac.Config) {
	rows := make([][]string, 0, 2)
	for _, f := range mlc.Families() {
		m, err := cfg.Machine(f)
		if err != nil {
			continue
		}
		rows = append(rows, []string{f.Key(), m.TreatmentMachineName, m.DeviceSerialNumber})
	}
	printTable([]string{"MLC", "TreatmentMachineName", "DeviceSerialNumber"}, rows)
}
