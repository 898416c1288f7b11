package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-scorm/internal/catalog"
	"github.com/mind-engage/mindengage-scorm/internal/quiz"
	"github.com/mind-engage/mindengage-scorm/internal/scorm"
)

var (
	// exportOutput is the PIF path or the target directory with --dir
	exportOutput string
	// exportDir writes an unpacked content package instead of a zip
	exportDir bool
	// exportTitle overrides the quiz title
	exportTitle     string
	exportPrefix    string
	exportStyle     string
	exportLocale    string
	exportTemplates string
)

var exportCmd = &cobra.Command{
	Use:   "export <questions.gift|yaml|json>",
	Short: "Export a question file as a SCORM 1.2 package",
	Long: `Export a question file as a SCORM 1.2 package.

Each question becomes one SCO page. Questions whose answer is a
` + pathStyle.Render("{scorm:package.zip?id=RES}") + ` reference pull that resource and its
dependencies out of another package; relative package paths resolve
against the question file's directory.

Examples:
  scormkit export quiz.gift -o quiz.zip
  scormkit export quiz.yaml --dir -o build/quiz --locale de`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		qz, err := quiz.Load(args[0])
		if err != nil {
			return err
		}
		def, err := a.exportDefaults(ctx)
		if err != nil {
			return err
		}
		for flag, dst := range map[string]*string{
			"prefix": &def.Prefix, "stylesheet": &def.Stylesheet,
			"locale": &def.Locale, "templates": &def.TemplateSource,
		} {
			if f := cmd.Flags().Lookup(flag); f.Changed {
				*dst = f.Value.String()
			}
		}
		title := firstNonEmpty(exportTitle, qz.Title, "Quiz")
		out := exportOutput
		if out == "" {
			out = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			if !exportDir {
				out += ".zip"
			}
			out = filepath.Join(a.cfg.OutputDir, out)
		}

		tmpl, err := scorm.OpenTemplates(def.TemplateSource)
		if err != nil {
			return err
		}
		defer tmpl.Close()

		ex := scorm.NewExporter(a.log)
		ex.Templates = tmpl
		ex.Progress = &scorm.LogProgress{Log: a.log}
		opts := scorm.Options{
			Title:      title,
			Stylesheet: def.Stylesheet,
			Locale:     def.Locale,
			Prefix:     def.Prefix,
			BaseDir:    filepath.Dir(args[0]),
			// local runs may reference packages anywhere on disk
			AllowOutsideBaseDir: true,
		}
		run := catalog.ExportRun{Title: title, Format: "pif", QuestionCount: len(qz.Questions), Output: out}
		var res *scorm.Result
		if exportDir {
			run.Format = "dir"
			res, err = ex.ExportToContentPackage(ctx, qz.Questions, opts, out)
		} else {
			res, err = ex.ExportToPIF(ctx, qz.Questions, opts, out)
		}
		if err != nil {
			run.Status, run.Message = catalog.StatusFailed, err.Error()
		} else {
			run.Bytes = outputSize(out)
		}
		if st, serr := a.store(ctx); serr == nil {
			if _, rerr := st.RecordExport(ctx, run); rerr != nil {
				a.log.Warn("record export", "err", rerr)
			}
		}
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, successStyle.Render("exported ")+pathStyle.Render(out))
		fmt.Fprintf(w, "%s%d\n", keyStyle.Render("questions"), len(qz.Questions))
		fmt.Fprintf(w, "%s%d\n", keyStyle.Render("pages"), res.Pages)
		fmt.Fprintf(w, "%s%d\n", keyStyle.Render("external"), res.External)
		fmt.Fprintf(w, "%s%s\n", keyStyle.Render("size"), humanize.Bytes(uint64(run.Bytes)))
		for _, is := range res.Issues {
			fmt.Fprintln(w, warningStyle.Render(string(is.Severity))+" "+is.Path+" "+is.Message)
		}
		return nil
	}),
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportOutput, "output", "o", "", "output zip (or directory with --dir)")
	f.BoolVar(&exportDir, "dir", false, "write an unpacked content package")
	f.StringVar(&exportTitle, "title", "", "organization title")
	f.StringVar(&exportPrefix, "prefix", "", "prefix for page file names")
	f.StringVar(&exportStyle, "stylesheet", "", "stylesheet linked from every page")
	f.StringVar(&exportLocale, "locale", "", "page language (BCP 47)")
	f.StringVar(&exportTemplates, "templates", "", `template assets: "bundled", a zip or a directory`)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// outputSize is the size of a file, or the summed size of a directory tree.
func outputSize(p string) int64 {
	var total int64
	_ = filepath.Walk(p, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
