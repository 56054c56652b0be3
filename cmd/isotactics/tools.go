package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nathoo/isotactics/engine"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [action]",
		Short: "Print the JSON Schema of action payloads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas, err := engine.PayloadSchemas()
			if err != nil {
				return err
			}
			var v any = schemas
			if len(args) == 1 {
				s, ok := schemas[args[0]]
				if !ok {
					return fmt.Errorf("unknown action %q (known: %v)", args[0], engine.ActionTypes())
				}
				v = s
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}

func validateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scenario.yaml ...]",
		Short: "Check content and scenarios without playing",
		Long: `Validate loads the content directory (--content, or each scenario's own)
and builds a session from every scenario, replaying any history it carries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				cat, err := loadCatalog(cfg.Content, log)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "content ok: %d characters\n", len(cat.Blueprints()))
				return nil
			}
			for _, path := range args {
				b, err := loadBattle(cfg, path, log)
				if err != nil {
					return err
				}
				s, err := engine.NewServerSession(cmd.Context(), b.setup, b.options(cfg, log)...)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(out, "%s ok: %s, %d players, %d actions, phase %s\n",
					path, b.title, len(s.Players()), len(s.History()), s.Phase())
			}
			return nil
		},
	}
}

func matchesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List archived matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("no match archive configured (--db)")
			}
			defer st.Close()

			list, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"ID", "Title", "Scenario", "Phase", "Winner", "Actions", "Updated"})
			for _, m := range list {
				tw.AppendRow(table.Row{m.ID, m.Title, m.ScenarioID, m.Phase, m.Winner, m.Actions, m.UpdatedAt.Format("2006-01-02 15:04")})
			}
			tw.SetStyle(table.StyleLight)
			tw.Render()
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("no match archive configured (--db)")
			}
			defer st.Close()
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
