package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nathoo/isotactics/cli"
	"github.com/nathoo/isotactics/engine"
	"github.com/nathoo/isotactics/engine/save"
	"github.com/nathoo/isotactics/types"
)

func replayCmd(v *viper.Viper) *cobra.Command {
	var (
		matchID string
		upto    int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "replay [save.json|-]",
		Short: "Rebuild a battle from a save file or the match archive and print it",
		Long: `Replay rebuilds a session from its initial setup and action history.
A full save is checked against its recorded RNG position and phase.
With --upto only the first N actions are replayed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx := cmd.Context()

			var (
				title   string
				initial types.Setup
				rec     *save.Record
			)
			switch {
			case matchID != "":
				st, err := openStore(cfg, log)
				if err != nil {
					return err
				}
				if st == nil {
					return errors.New("--match needs --db")
				}
				defer st.Close()
				m, err := st.Get(ctx, matchID)
				if err != nil {
					return err
				}
				if initial, err = st.Setup(ctx, matchID); err != nil {
					return err
				}
				title = m.Title
			case len(args) == 1:
				data, err := readInput(args[0])
				if err != nil {
					return err
				}
				if rec, err = save.Load(data); err != nil {
					return err
				}
				title, initial = rec.Title, rec.Setup
			default:
				return errors.New("a save file or --match is required")
			}

			cat, err := loadCatalog(cfg.Content, log)
			if err != nil {
				return err
			}
			b := &battle{title: title, setup: initial, catalog: cat}
			opts := b.options(cfg, log)

			var sess *engine.Session
			if upto >= 0 && upto < len(initial.History) {
				initial.History = initial.History[:upto]
				sess, err = engine.NewServerSession(ctx, initial, opts...)
			} else if rec != nil {
				sess, err = save.Restore(ctx, rec, opts...)
			} else {
				sess, err = engine.NewServerSession(ctx, initial, opts...)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sess.State())
			}
			printBattle(out, title, sess)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&matchID, "match", "", "replay an archived match by id")
	f.IntVar(&upto, "upto", -1, "replay only the first N actions")
	f.BoolVar(&asJSON, "json", false, "print the final state as JSON")
	return cmd
}

// printBattle writes the board, units and history of s.
func printBattle(w io.Writer, title string, s *engine.Session) {
	if title != "" {
		fmt.Fprintf(w, "%s (%s, seed %s)\n", title, s.ID(), s.Seed())
	}
	fmt.Fprintln(w, cli.Board(s, nil))
	if s.Phase() == engine.PhaseDeploy {
		fmt.Fprintln(w, cli.RosterTable(s))
	} else {
		fmt.Fprintln(w, cli.UnitsTable(s))
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("History")
	tw.AppendHeader(table.Row{"#", "Action", "Payload"})
	for i, a := range s.History() {
		tw.AppendRow(table.Row{i, a.Type, string(a.Payload)})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()

	if winner, ok := s.Winner(); ok {
		name := winner
		if p := s.Player(winner); p != nil && p.Name != "" {
			name = p.Name
		}
		fmt.Fprintf(w, "Winner: %s\n", name)
	}
}
