package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2md/internal/convert"
	"github.com/pdiddy/pdf2md/internal/pipeline"
	"github.com/pdiddy/pdf2md/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert FILE.pdf...",
	Short: "Convert PDF files to refined Markdown",
	Long: `Convert extracts each PDF with the document-parse service and refines
the result with the configured language model. The Markdown is written as
<name>.md next to the input, or under --out-dir. A failed document writes
nothing and its reason is printed; the command exits non-zero when any
document failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("requirements", types.DefaultRequirements, "free-form refinement requirements")
	convertCmd.Flags().String("requirements-file", "", "read requirements from a file (overrides --requirements)")
	convertCmd.Flags().Bool("translate", false, "translate the output into refine.target_language")
	convertCmd.Flags().String("out-dir", "", "directory for .md output (default: next to each PDF)")
	convertCmd.Flags().Bool("overwrite", false, "replace existing .md files")
	convertCmd.Flags().Bool("frontmatter", false, "prepend YAML frontmatter naming the source PDF")
	convertCmd.Flags().String("mode", "", "refinement mode: direct or tool")
	convertCmd.Flags().String("backend", "", "refinement backend: openai, claude, or gemini")
	convertCmd.Flags().String("model", "", "model identifier for the backend")
	convertCmd.Flags().String("language", "", "target language for --translate (e.g. ko, ja, English)")

	bindFlag("refine.mode", convertCmd.Flags().Lookup("mode"))
	bindFlag("refine.backend", convertCmd.Flags().Lookup("backend"))
	bindFlag("refine.model", convertCmd.Flags().Lookup("model"))
	bindFlag("refine.target_language", convertCmd.Flags().Lookup("language"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	requirements, _ := cmd.Flags().GetString("requirements")
	if path, _ := cmd.Flags().GetString("requirements-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading requirements file: %w", err)
		}
		requirements = string(data)
	}
	translate, _ := cmd.Flags().GetBool("translate")
	outDir, _ := cmd.Flags().GetString("out-dir")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	frontmatter, _ := cmd.Flags().GetBool("frontmatter")

	prog := newProgress()
	defer prog.stop()

	p, err := pipeline.FromConfig(cfg, loadedSecrets, logger, pipeline.WithObserver(prog.observe))
	if err != nil {
		return err
	}

	opts := convert.Options{
		OutDir:       outDir,
		Requirements: requirements,
		Translate:    translate,
		Overwrite:    overwrite,
		Frontmatter:  frontmatter,
	}
	result := convert.ConvertBatch(cmd.Context(), p, args, opts, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d document(s) failed conversion", result.Failed)
	}
	return nil
}
