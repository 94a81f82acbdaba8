package cli

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

// fontsCommand creates the fonts command.
func (c *CLI) fontsCommand() *cobra.Command {
	var (
		flags  *configFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "fonts",
		Short: "List the font faces available to text rendering",
		Long: `List the font faces loaded from system directories, --font-file and
--font-dir. Each line names the source file, the family, the face index
in the file, and the style, weight and stretch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))
			spin := c.startSpinner(ctx, cmd.ErrOrStderr(), "Scanning fonts")
			fonts, err := c.newRunner().ListFonts(ctx, raw)
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done("Font scan complete", "faces", len(fonts))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, fonts)
			}
			printInfo(out, "%s font faces", StyleNumber.Render(strconv.Itoa(len(fonts))))
			for _, f := range fonts {
				printDetail(out, "%s", f)
			}
			return nil
		},
	}

	flags = addConfigFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var (
		flags  *configFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "query <input>",
		Short: "Print the bounding boxes of top-level elements",
		Long: `Print the bounding box of every direct child of the root element that has
an id, in document order. Boxes include stroke and are in user units of
the root viewBox.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			prog := newProgress(loggerFromContext(cmd.Context()))
			boxes, err := c.newRunner().Query(cmd.Context(), args[0], raw)
			if err != nil {
				return err
			}
			prog.done("Query complete", "input", args[0], "boxes", len(boxes))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, boxes)
			}
			if len(boxes) == 0 {
				printInfo(out, "no elements with an id")
				return nil
			}
			printBoxes(out, boxes)
			return nil
		},
	}

	flags = addConfigFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
