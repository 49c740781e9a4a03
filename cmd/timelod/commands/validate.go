package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timelod/internal/traceload"
)

// maxReportedErrors bounds the violations printed by validate.
const maxReportedErrors = 20

// ErrValidationFailed is returned when a trace violates the schema.
var ErrValidationFailed = errors.New("trace validation failed")

// ValidateCommand checks trace files against the trace-event schema.
type ValidateCommand struct {
	noColor bool
	quiet   bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	vc := &ValidateCommand{}

	cmd := &cobra.Command{
		Use:   "validate <trace>...",
		Short: "Validate trace files against the trace-event schema",
		Long: `Validate Chrome trace-event files (plain or LZ4 compressed) against the
embedded JSON schema. Use "-" to read stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: vc.run,
	}

	cmd.Flags().BoolVar(&vc.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVarP(&vc.quiet, "quiet", "q", false, "Only report failures")

	return cmd
}

func (vc *ValidateCommand) run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0

	for _, path := range args {
		ok, err := vc.validate(out, cmd.InOrStdin(), path)
		if err != nil {
			return err
		}

		if !ok {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrValidationFailed, failed, len(args))
	}

	return nil
}

func (vc *ValidateCommand) validate(out io.Writer, stdin io.Reader, path string) (bool, error) {
	var (
		input io.Reader
		label = path
	)

	if path == "-" {
		input, label = traceload.Decompress(stdin), "stdin"
	} else {
		rc, err := traceload.Open(path)
		if err != nil {
			return false, err
		}
		defer rc.Close()

		input = rc
	}

	res, err := traceload.Validate(input)
	if err != nil {
		return false, fmt.Errorf("%s: %w", label, err)
	}

	green, yellow, red := vc.color(color.FgGreen), vc.color(color.FgYellow), vc.color(color.FgRed)

	if res.Valid {
		if !vc.quiet {
			green.Fprintf(out, "trace is valid (%s)\n", label)
			green.Fprintf(out, "  Events: %d\n", res.Events)
		}

		return true, nil
	}

	red.Fprintf(out, "trace validation failed (%s)\n", label)
	yellow.Fprintf(out, "  Compliance: %d%%\n", res.Compliance())

	fmt.Fprintf(out, "\nErrors:\n")

	for i, verr := range res.Errors {
		if i == maxReportedErrors {
			fmt.Fprintf(out, "  ... %d more\n", len(res.Errors)-maxReportedErrors)

			break
		}

		red.Fprintf(out, "  - %s: %s\n", verr.Field, verr.Description)
	}

	return false, nil
}

func (vc *ValidateCommand) color(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if vc.noColor {
		c.DisableColor()
	}

	return c
}
