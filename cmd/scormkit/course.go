package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-scorm/internal/course"
	"github.com/mind-engage/mindengage-scorm/internal/storage"
)

var (
	courseOutput       string
	courseZip          bool
	courseOrganization string
	courseForce        bool
	courseTitle        string
	// courseScript prints the organization script and exits
	courseScript bool
)

var courseCmd = &cobra.Command{
	Use:   "course <package>",
	Short: "Build a standalone course player for a content package",
	Long: `Build a standalone course player for a content package.

The output holds ` + pathStyle.Render("index.html") + `, the course script, a local SCORM 1.2
runtime and every file the selected organization needs.

Examples:
  scormkit course lesson.zip -o site/
  scormkit course lesson.zip --organization GRID --zip -o grid.zip
  scormkit course lesson.zip --script`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		m, err := course.Load(args[0], a.log)
		if err != nil {
			return err
		}
		defer m.Close()
		if courseOrganization != "" {
			if err := m.SelectOrganization(courseOrganization); err != nil {
				return err
			}
		}
		if courseScript {
			s, err := m.OrganizationScript()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), s)
			return err
		}

		out := courseOutput
		if out == "" {
			out = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + "-course"
			if courseZip {
				out += ".zip"
			}
			out = filepath.Join(a.cfg.OutputDir, out)
		}
		sink, err := storage.Create(out, !courseZip)
		if err != nil {
			return err
		}
		res, err := m.Build(ctx, sink, course.BuildOptions{Force: courseForce, Title: courseTitle})
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, successStyle.Render("built ")+pathStyle.Render(out))
		fmt.Fprintf(w, "%s%s\n", keyStyle.Render("organization"), m.Organization().ID)
		fmt.Fprintf(w, "%s%d\n", keyStyle.Render("files"), len(res.Entries))
		fmt.Fprintf(w, "%s%s\n", keyStyle.Render("size"), humanize.Bytes(uint64(outputSize(out))))
		for _, s := range res.Skipped {
			fmt.Fprintln(w, warningStyle.Render("skipped ")+s)
		}
		return nil
	}),
}

func init() {
	f := courseCmd.Flags()
	f.StringVarP(&courseOutput, "output", "o", "", "output directory (or zip with --zip)")
	f.BoolVar(&courseZip, "zip", false, "write a zip archive")
	f.StringVar(&courseOrganization, "organization", "", "organization identifier (default: the manifest's default)")
	f.BoolVar(&courseForce, "force", false, "build packages that fail validation")
	f.StringVar(&courseTitle, "title", "", "player page title")
	f.BoolVar(&courseScript, "script", false, "print the course script instead of building")
}
