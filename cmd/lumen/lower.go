package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lumen/internal/binfile"
	"lumen/internal/diagfmt"
	"lumen/internal/driver"
	"lumen/internal/project"
)

var (
	lowerMaxRounds int
	lowerInline    bool
	lowerTimings   bool
	lowerJSON      bool
	lowerOutDir    string
)

func init() {
	lowerCmd.Flags().IntVar(&lowerMaxRounds, "max-rounds", 0, "fixed-point round ceiling (0 uses the default)")
	lowerCmd.Flags().BoolVar(&lowerInline, "inline", false, "inline helper functions after flattening")
	lowerCmd.Flags().BoolVar(&lowerTimings, "timings", false, "attach per-phase timing information")
	lowerCmd.Flags().BoolVar(&lowerJSON, "json", false, "emit diagnostics as JSON")
	lowerCmd.Flags().StringVarP(&lowerOutDir, "out", "o", "", "directory for lowered artifacts (default: alongside input)")
}

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] [artifacts...]",
	Short: "Lower tree artifacts into circuit-ready form",
	Long: "Lower runs the middle end over one or more .last artifacts and writes a\n" +
		".llow artifact next to each input. Without arguments the project manifest\n" +
		"names the entry artifact.",
	RunE: lowerExecution,
}

// lowerResult is one input's outcome, rendered after every worker finishes so
// the output order matches the input order.
type lowerResult struct {
	path   string
	output string
	report bytes.Buffer
	err    error
}

func lowerExecution(cmd *cobra.Command, args []string) error {
	opts := driver.Options{
		MaxRounds: lowerMaxRounds,
		Inline:    lowerInline,
		Timings:   lowerTimings,
	}

	inputs := args
	if len(inputs) == 0 {
		manifest, found, err := project.Load(".")
		if err != nil {
			return err
		}
		if !found {
			return errors.New("no lumen.toml found\nplease specify the artifact explicitly, e.g.:\n  lumen lower path/to/program.last")
		}
		entry, err := manifest.EntryPath()
		if err != nil {
			return err
		}
		inputs = []string{entry}
		if opts.MaxRounds == 0 {
			opts.MaxRounds = manifest.Config.Build.MaxRounds
		}
		if !cmd.Flags().Changed("inline") {
			opts.Inline = manifest.Config.Build.Inline
		}
	}

	colorMode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	opts.Log = newLogger(verbose)
	color := useColor(colorMode, os.Stderr)

	results := make([]lowerResult, len(inputs))
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for i, path := range inputs {
		i, path := i, path
		g.Go(func() error {
			res := &results[i]
			res.path = path
			res.err = lowerOne(path, opts, res, color, quiet, maxDiagnostics)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i := range results {
		res := &results[i]
		if res.report.Len() > 0 {
			os.Stderr.Write(res.report.Bytes())
		}
		if res.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.path, res.err)
			continue
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "lowered %s\n", res.output)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d artifact(s) failed", failed, len(results))
	}
	return nil
}

func lowerOne(path string, opts driver.Options, res *lowerResult, color, quiet bool, maxDiagnostics int) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	prog, counter, err := binfile.DecodeTree(in)
	if err != nil {
		return err
	}

	st, compileErr := driver.Compile(prog, counter, opts)
	if lowerJSON {
		_ = diagfmt.JSON(&res.report, st.Bag, diagfmt.JSONOpts{IncludeNotes: true, Max: maxDiagnostics})
	} else {
		diagfmt.Pretty(&res.report, st.Bag, diagfmt.PrettyOpts{
			Color:     color,
			ShowNotes: true,
			Max:       maxDiagnostics,
		})
		if !quiet {
			diagfmt.Summary(&res.report, st.Bag, color)
		}
	}
	if compileErr != nil {
		return compileErr
	}

	res.output = outputPath(path)
	out, err := os.Create(res.output)
	if err != nil {
		return err
	}
	if err := binfile.EncodeLowered(out, st.Prog, st.Counter, st.Types, st.Syms); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// outputPath swaps the artifact extension and honors --out.
func outputPath(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".llow"
	dir := filepath.Dir(input)
	if lowerOutDir != "" {
		dir = lowerOutDir
	}
	return filepath.Join(dir, base)
}
