package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-scorm/internal/cam"
	"github.com/mind-engage/mindengage-scorm/internal/course"
)

var (
	// validateJSON prints the report as JSON
	validateJSON bool
	// validateStrict fails on warnings too
	validateStrict bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <package>...",
	Short: "Validate content packages (zip or directory)",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		failed := 0
		for _, p := range args {
			m, err := course.Load(p, a.log)
			if err != nil {
				return err
			}
			if validateJSON {
				err = printReportJSON(cmd.OutOrStdout(), m)
			} else {
				printReport(cmd.OutOrStdout(), m)
			}
			ok := m.Report.Valid() && (!validateStrict || m.Report.Warnings() == 0)
			m.Close()
			if err != nil {
				return err
			}
			if !ok {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d packages failed validation", failed, len(args))
		}
		return nil
	}),
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the report as JSON")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat warnings as failures")
}

func printReport(w io.Writer, m *course.Model) {
	fmt.Fprintln(w, titleStyle.Render(m.Name)+" "+mutedStyle.Render(m.Manifest.ID))
	if orgs := m.Manifest.Organizations; orgs != nil {
		def := orgs.DefaultOrganization()
		for _, o := range orgs.Items {
			mark := " "
			if o == def {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s %s %s\n", mark, o.ID, mutedStyle.Render(o.Title+" ("+o.Structure+")"))
		}
	}
	for _, is := range m.Report.Issues() {
		style := warningStyle
		if is.Severity == cam.SeverityError {
			style = errorStyle
		}
		fmt.Fprintf(w, "  %s %s %s\n", style.Render(string(is.Severity)), pathStyle.Render(is.Path), is.Message)
	}
	if m.Report.Valid() {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("  valid (%d warnings)", m.Report.Warnings())))
	} else {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("  invalid: %d errors, %d warnings", m.Report.Errors(), m.Report.Warnings())))
	}
}

func printReportJSON(w io.Writer, m *course.Model) error {
	issues := m.Report.Issues()
	if issues == nil {
		issues = []cam.Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"package":  m.Name,
		"manifest": m.Manifest.ID,
		"valid":    m.Report.Valid(),
		"errors":   m.Report.Errors(),
		"warnings": m.Report.Warnings(),
		"issues":   issues,
	})
}
