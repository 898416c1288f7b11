package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-scorm/internal/catalog"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent exports",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		st, err := a.store(cmd.Context())
		if err != nil {
			return err
		}
		runs, err := st.ListExports(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("no exports yet"))
			return nil
		}
		for _, r := range runs {
			status := successStyle.Render(r.Status)
			if r.Status == catalog.StatusFailed {
				status = errorStyle.Render(r.Status)
			}
			fmt.Fprintf(w, "%s %s %s %s\n", status, titleStyle.Render(r.Title),
				mutedStyle.Render(fmt.Sprintf("%s, %d questions, %s, %s", r.Format, r.QuestionCount,
					humanize.Bytes(uint64(r.Bytes)), humanize.Time(r.CreatedAt))),
				pathStyle.Render(r.Output))
			if r.Message != "" {
				fmt.Fprintln(w, "    "+r.Message)
			}
		}
		return nil
	}),
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
}
