package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nathoo/isotactics/cli"
	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/tui"
)

func playCmd(v *viper.Viper) *cobra.Command {
	var script string
	cmd := &cobra.Command{
		Use:   "play [scenario.yaml]",
		Short: "Play a hot-seat battle in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			path := cfg.Scenario
			if len(args) == 1 {
				path = args[0]
			}
			b, err := loadBattle(cfg, path, log)
			if err != nil {
				return err
			}

			console := cli.NewConsole(cfg.SaveDir, log)
			console.Title = b.title
			console.Options = b.options(cfg, log)
			console.Trace = cfg.Trace
			ctx := cmd.Context()
			sess, err := engine.NewServerSession(ctx, b.setup, console.SessionOptions()...)
			if err != nil {
				return fmt.Errorf("starting battle: %w", err)
			}
			console.Attach(sess)

			st, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
				id := uuid.NewString()
				stop, err := st.Track(ctx, id, b.title, sess)
				if err != nil {
					return fmt.Errorf("archiving match: %w", err)
				}
				defer stop()
				log.Info("archiving match", zap.String("match", id), zap.String("db", cfg.DB))
			}

			// Script mode: read commands from a file, force plain, echo input.
			if script != "" {
				f, err := os.Open(script)
				if err != nil {
					return fmt.Errorf("opening script: %w", err)
				}
				defer f.Close()
				c := cli.New(console)
				c.In = f
				c.Out = cmd.OutOrStdout()
				c.EchoInput = true
				c.Run(ctx)
				return nil
			}

			if cfg.Plain || !isTerminal() {
				c := cli.New(console)
				c.Out = cmd.OutOrStdout()
				c.Run(ctx)
				return nil
			}
			return tui.Run(ctx, console)
		},
	}
	f := cmd.Flags()
	f.String("scenario", "", "scenario YAML file")
	f.Bool("plain", false, "line-mode output instead of the full-screen UI")
	f.Bool("trace", false, "narrate every engine event")
	f.StringVar(&script, "script", "", "read commands from a file (implies --plain)")
	_ = v.BindPFlag("scenario", f.Lookup("scenario"))
	_ = v.BindPFlag("plain", f.Lookup("plain"))
	_ = v.BindPFlag("trace", f.Lookup("trace"))
	return cmd
}
