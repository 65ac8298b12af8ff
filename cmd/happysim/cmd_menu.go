package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/talgya/happiness-abm/internal/config"
	"github.com/talgya/happiness-abm/internal/menu"
	"github.com/talgya/happiness-abm/internal/persistence"
	"github.com/talgya/happiness-abm/internal/survey"
)

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu (default when no subcommand is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd)
		},
	}
}

func runMenu(cmd *cobra.Command) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	db, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore(db)

	c := menu.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	err = c.Run(cmd.Context(), mainMenu(c, cfg, db))
	if isCleanExit(err) {
		return nil
	}
	return err
}

// menus builds the interactive menus over one console.
type menus struct {
	console *menu.Console
	cfg     *config.Config
	db      *persistence.DB
}

func mainMenu(c *menu.Console, cfg *config.Config, db *persistence.DB) *menu.Menu {
	m := &menus{console: c, cfg: cfg, db: db}
	return &menu.Menu{
		Title: "Happiness ABM",
		Options: []menu.Option{
			{Key: "1", Label: "Filter survey data", Action: m.sub(m.filterMenu)},
			{Key: "2", Label: "Score networks with the model", Action: m.sub(m.scoreMenu)},
			{Key: "3", Label: "Calibrate models", Action: m.sub(m.calibrateMenu)},
			{Key: "4", Label: "Social dynamics simulation", Action: m.sub(m.socialMenu)},
			{Key: "5", Label: "Time allocation model", Action: m.runHappiness},
			{Key: "0", Label: "Exit", Exit: true},
		},
		Goodbye: "Goodbye!",
	}
}

func (m *menus) sub(build func() *menu.Menu) menu.Action {
	return func(ctx context.Context) error {
		return m.console.Run(ctx, build())
	}
}

// networkOptions builds one option per network key, numbered from 1.
func (m *menus) networkOptions(keys []string, label func(survey.Network) string, run func(context.Context, survey.Network) error) []menu.Option {
	opts := make([]menu.Option, 0, len(keys))
	for i, k := range keys {
		n, err := survey.Lookup(k)
		if err != nil {
			continue
		}
		opts = append(opts, menu.Option{
			Key:    string(rune('1' + i)),
			Label:  label(n),
			Action: func(ctx context.Context) error { return run(ctx, n) },
		})
	}
	return opts
}

func (m *menus) filterMenu() *menu.Menu {
	opts := m.networkOptions([]string{"X", "IG", "FB"},
		func(n survey.Network) string { return n.Name },
		func(ctx context.Context, n survey.Network) error {
			return filterNetwork(ctx, m.cfg, n, m.console.Out(), false)
		})
	return &menu.Menu{
		Title:    "Survey data filtering tool",
		Subtitle: "Select the social network whose data you want to process:",
		Options:  append(opts, menu.Option{Key: "0", Label: "Back", Exit: true}),
	}
}

func (m *menus) scoreMenu() *menu.Menu {
	opts := m.networkOptions([]string{"X", "IG", "FB"},
		func(n survey.Network) string { return n.Name },
		func(ctx context.Context, n survey.Network) error {
			return scoreNetwork(ctx, m.cfg, n, m.console.Out(), false)
		})
	return &menu.Menu{
		Title:    "Model scoring",
		Subtitle: "Select the social network to score:",
		Options:  append(opts, menu.Option{Key: "0", Label: "Back", Exit: true}),
	}
}

func (m *menus) calibrateMenu() *menu.Menu {
	opts := m.networkOptions(calibrationOrder,
		func(n survey.Network) string { return "Calibrate " + n.Name },
		func(ctx context.Context, n survey.Network) error {
			m.console.Printf("\n--- Processing: %s ---\n", n.Name)
			return calibrateNetworks(ctx, m.cfg, m.db, []survey.Network{n}, m.console.Out(), false)
		})
	opts = append(opts,
		menu.Option{Key: "4", Label: "Calibrate ALL networks", Action: func(ctx context.Context) error {
			m.console.Printf("\nStarting full calibration...\n")
			nets, err := networksFor(calibrationOrder)
			if err != nil {
				return err
			}
			return calibrateNetworks(ctx, m.cfg, m.db, nets, m.console.Out(), false)
		}},
		menu.Option{Key: "5", Label: "Back", Exit: true},
	)
	return &menu.Menu{
		Title:   "Model calibration",
		Options: opts,
	}
}

func (m *menus) socialMenu() *menu.Menu {
	opts := m.networkOptions([]string{"FB", "IG", "X"},
		func(n survey.Network) string { return n.Name },
		func(ctx context.Context, n survey.Network) error {
			return runSocial(ctx, m.cfg, m.db, n, socialOptions{Serve: true}, m.console.Out(), false)
		})
	return &menu.Menu{
		Title:    "Social dynamics simulation",
		Subtitle: "Agents move and influence each other according to their sociability.",
		Options:  append(opts, menu.Option{Key: "0", Label: "Back", Exit: true}),
		Once:     true,
	}
}

func (m *menus) runHappiness(ctx context.Context) error {
	_, err := runHappiness(ctx, m.cfg, m.db, runOptions{
		Agents: m.cfg.Simulation.Agents,
		Steps:  m.cfg.Simulation.Steps,
		Total:  m.cfg.Simulation.TotalHours,
		Bins:   10,
		Sample: 10,
	}, m.console.Out(), false)
	return err
}
