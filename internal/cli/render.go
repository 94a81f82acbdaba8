package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/options"
	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// stdio names standard input or output in place of a path.
const stdio = "-"

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var flags *configFlags

	cmd := &cobra.Command{
		Use:   "render <input> <output>",
		Short: "Render an SVG or SVGZ document to PNG",
		Long: `Render an SVG or SVGZ document to PNG.

Use - as input to read the document from stdin, and - as output to write
the PNG to stdout. Relative image references resolve against the input's
directory, or against --resources-dir (the working directory for stdin)
when the document does not come from a file.`,
		Example: `  svgpng render logo.svg logo.png
  svgpng render --width 512 --background white icon.svgz icon.png
  cat drawing.svg | svgpng render - - > drawing.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runRender(cmd, args[0], args[1], raw)
		},
	}

	flags = addConfigFlags(cmd)
	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input, output string, raw options.Raw) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	logger.Debugf("Rendering %s to %s", input, output)
	prog := newProgress(logger)

	spin := c.startSpinner(ctx, cmd.ErrOrStderr(), "Rendering "+input)
	err := c.render(ctx, cmd, input, output, raw)
	spin.Stop()
	if err != nil {
		return err
	}

	prog.done("Rendered", "input", input, "output", output)
	if output == stdio {
		return nil
	}
	printSuccess(cmd.OutOrStdout(), "Rendered %s", input)
	printFile(cmd.OutOrStdout(), output)
	return nil
}

func (c *CLI) render(ctx context.Context, cmd *cobra.Command, input, output string, raw options.Raw) error {
	runner := c.newRunner()
	if input != stdio && output != stdio {
		return runner.RenderFileToFile(ctx, input, output, raw)
	}

	text, dir, err := readInput(cmd, input)
	if err != nil {
		return err
	}
	if raw.ResourcesDir == "" {
		raw.ResourcesDir = dir
	}

	if output != stdio {
		return runner.RenderTextToFile(ctx, text, output, raw)
	}
	png, err := runner.RenderTextToBuffer(ctx, text, raw)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(png); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "failed to write PNG to stdout")
	}
	return nil
}

// readInput reads a document and the directory its references resolve
// against.
func readInput(cmd *cobra.Command, input string) (string, string, error) {
	if input != stdio {
		data, err := svgdoc.ReadFile(input)
		if err != nil {
			return "", "", err
		}
		return string(data), filepath.Dir(input), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeIORead, err, "failed to read stdin")
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeIORead, err, "failed to resolve working directory")
	}
	return string(data), dir, nil
}
