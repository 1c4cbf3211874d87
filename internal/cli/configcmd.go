package cli

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/disgraph/pkg/config"
	"github.com/matzehuels/disgraph/pkg/errors"
)

// configCommand creates the config command and its subcommands.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, edit and watch the config file",
		Long: `Show, edit and watch the config file.

Keys are written as section.name, for example view.theme or
layout.strategy. Lists are given comma-separated: export.formats=svg,png.`,
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configGetCommand())
	cmd.AddCommand(c.configSetCommand())
	cmd.AddCommand(c.configWatchCommand())

	return cmd
}

func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := toml.NewEncoder(c.Out).Encode(cfg); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
			}
			return nil
		},
	}
}

func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.Out, c.configFile())
			return nil
		},
	}
}

func (c *CLI) configGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <section.name>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			v, err := config.Get(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Out, v)
			return nil
		},
	}
}

func (c *CLI) configSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set <section.name> <value>",
		Short:   "Change one setting and save the file",
		Example: "  disgraph config set view.theme dark\n  disgraph config set export.formats svg,png",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cfg, err = config.Set(cfg, args[0], args[1])
			if err != nil {
				return err
			}
			path := c.configFile()
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			c.cfg = cfg
			v, _ := config.Get(cfg, args[0])
			printSuccess(c.Out, "%s = %s", args[0], v)
			printDetail(c.Out, "Saved to %s", path)
			printNextStep(c.Out, "Show effective settings", appName+" config show")
			return nil
		},
	}
}

func (c *CLI) configWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Report changes to the config file until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.watchConfig(cmd.Context())
		},
	}
}

func (c *CLI) watchConfig(ctx context.Context) error {
	path := c.configFile()
	w, err := config.NewWatcher(path, func(cfg config.Config, err error) {
		if err != nil {
			printWarning(c.Out, "invalid config: %v", err)
			return
		}
		c.cfg, c.loaded = cfg, true
		printSuccess(c.Out, "Reloaded %s", path)
		printKeyValue(c.Out, "strategy", cfg.Layout.Strategy)
		printKeyValue(c.Out, "orientation", cfg.Layout.Orientation)
		printKeyValue(c.Out, "theme", cfg.View.Theme)
	}, config.WithWatchLogger(c.Logger))
	if err != nil {
		return err
	}
	defer w.Close()

	printInfo(c.Out, "Watching %s", path)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
