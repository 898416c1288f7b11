package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-scorm/internal/catalog"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage stored export preferences",
	Long: `Manage stored export preferences.

Stored values override the config file. Known keys: ` +
		catalog.PrefTemplateSource + ", " + catalog.PrefExportPrefix + ", " +
		catalog.PrefStylesheet + ", " + catalog.PrefLocale + ".",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a preference",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		st, err := a.store(cmd.Context())
		if err != nil {
			return err
		}
		v, err := st.GetPreference(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	}),
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a preference",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		st, err := a.store(cmd.Context())
		if err != nil {
			return err
		}
		return st.SetPreference(cmd.Context(), args[0], args[1])
	}),
}

var prefsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a preference",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		st, err := a.store(cmd.Context())
		if err != nil {
			return err
		}
		return st.DeletePreference(cmd.Context(), args[0])
	}),
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored preferences",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		st, err := a.store(cmd.Context())
		if err != nil {
			return err
		}
		prefs, err := st.ListPreferences(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(prefs) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("no stored preferences"))
		}
		for _, p := range prefs {
			fmt.Fprintf(w, "%s%s\n", keyStyle.Render(p.Key), p.Value)
		}
		return nil
	}),
}

func init() {
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd, prefsUnsetCmd, prefsListCmd)
}
