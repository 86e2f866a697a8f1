package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odysseus0/feedmd/internal/imageproxy"
	"github.com/odysseus0/feedmd/internal/markdown"
	"github.com/odysseus0/feedmd/internal/render"
)

func newConvertCmd(getOutput func() OutputFormat) *cobra.Command {
	var noRewrite bool
	var tidy bool

	cmd := &cobra.Command{
		Use:         "convert [file|-]",
		Short:       "Convert an HTML document to Markdown",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationNoApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			raw, err := readInput(cmd, src)
			if err != nil {
				return err
			}

			var rewriter markdown.ImageRewriter
			if !noRewrite {
				rewriter = imageproxy.Default()
			}
			emitter := markdown.NewEmitter(markdown.WithRewriter(rewriter), markdown.WithLogger(slog.Default()))
			res, err := emitter.RenderHTML(string(raw))
			if err != nil {
				return fmt.Errorf("convert %s: %w", src, err)
			}
			out := res.Markdown
			if tidy {
				out = render.Tidy(out)
			}

			if getOutput() == OutputJSON {
				resp := ConvertResponse{Markdown: out}
				for _, f := range res.Failures {
					resp.Failures = append(resp.Failures, f.Error())
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			if n := len(res.Failures); n > 0 {
				stderr := cmd.ErrOrStderr()
				fmt.Fprintf(stderr, "warning: %d element(s) could not be converted\n", n)
				for _, f := range res.Failures {
					fmt.Fprintf(stderr, "  %v\n", f)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noRewrite, "no-rewrite", false, "Keep image URLs as written")
	cmd.Flags().BoolVar(&tidy, "tidy", false, "Collapse runs of blank lines")
	return cmd
}

func readInput(cmd *cobra.Command, src string) ([]byte, error) {
	if src == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return b, nil
}

func newImageCmd(getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:         "image <url>",
		Short:       "Show how an image URL is rewritten",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationNoApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			res := imageproxy.Default().Resolve(args[0])
			switch getOutput() {
			case OutputJSON:
				return writeJSON(cmd.OutOrStdout(), res)
			case OutputWide:
				writeResolutionTable(cmd.OutOrStdout(), res)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			}
			return nil
		},
	}
}
