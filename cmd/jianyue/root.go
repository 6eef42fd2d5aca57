package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/justyntemme/jianyue/internal/engine/textengine"
	"github.com/justyntemme/jianyue/internal/session"
	"github.com/justyntemme/jianyue/internal/ui"
	"github.com/justyntemme/jianyue/internal/ui/views"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "jianyue [slug]",
		Short: "Terminal EPUB reader",
		Long: `jianyue reads EPUB books from a local or remote library.

The library is a directory or http(s) URL holding index.json and the
book files it lists. Reading positions are remembered per book.`,
		Example: `  # Browse the library
  jianyue

  # Open a book directly
  jianyue moby-dick

  # Use a remote library
  JIANYUE_LIBRARY=https://example.com/epubs jianyue`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			e, err := openEnv(cfgFile)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, e.Close()) }()

			var slug string
			if len(args) == 1 {
				slug = args[0]
			}

			ctx := cmd.Context()
			host := views.NewTerminalHost(true)
			opener := textengine.NewOpener(e.client, e.log.Named("engine"))
			ctl := session.New(ctx, e.client, e.positions, opener, host, e.log.Named("session"))
			defer func() { err = multierr.Append(err, ctl.Close()) }()

			app := ui.NewApp(ctx, ui.Options{
				Catalog:    e.client,
				Controller: ctl,
				Host:       host,
				Cells:      views.CellSize{Width: e.cfg.Input.CellWidth, Height: e.cfg.Input.CellHeight},
				Slug:       slug,
				Log:        e.log,
			})
			p := tea.NewProgram(app, tea.WithContext(ctx), tea.WithMouseCellMotion())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running program: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/jianyue/config.yaml)")

	cmd.AddCommand(newListCmd(&cfgFile))
	cmd.AddCommand(newPositionCmd(&cfgFile))

	return cmd
}
