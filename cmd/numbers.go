package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"reqtx/internal/bootstrap"
	"reqtx/internal/errs"
	"reqtx/internal/ports"
	"reqtx/internal/txscope"
	"reqtx/internal/usecase/numbers"
)

var numbersCmd = &cobra.Command{
	Use:   "numbers",
	Short: "Work with stored numbers outside HTTP",
}

// numbersAddCmd runs the insert in a request transaction and reports a
// status the way the HTTP route does, so the commit policy decides.
var numbersAddCmd = &cobra.Command{
	Use:   "add [value]",
	Short: "Insert a number, random when no value is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		var in numbers.GenerateInput
		if len(args) == 1 {
			v, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errs.Wrapf(err, "parse value %q", args[0])
			}
			in.Value = &v
		}

		var n ports.Number
		resp, err := app.Backend.Run(cmd.Context(), func(ctx context.Context) (*txscope.Response, error) {
			generated, err := app.Numbers.Generate(ctx, in)
			n = generated
			switch {
			case err == nil:
				return &txscope.Response{Status: http.StatusCreated}, nil
			case errors.Is(err, numbers.ErrNotPositive):
				return &txscope.Response{Status: http.StatusTeapot}, nil
			default:
				return nil, err
			}
		})
		if err != nil {
			return errs.Wrap(err, "generate number")
		}
		if resp.Status != http.StatusCreated {
			return fmt.Errorf("number %d rolled back: %w", n.Value, numbers.ErrNotPositive)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "stored number id=%d value=%d\n", n.ID, n.Value); err != nil {
			return errs.Wrap(err, "write numbers output")
		}
		return nil
	}),
}

// numbersListCmd streams rows out of the transaction; it is finalized once
// the output has drained.
var numbersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored numbers in insertion order",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		resp, err := app.Backend.Run(cmd.Context(), func(ctx context.Context) (*txscope.Response, error) {
			pr, pw := io.Pipe()
			go func() {
				pw.CloseWithError(app.Numbers.Each(ctx, func(n ports.Number) error {
					_, err := fmt.Fprintf(pw, "%d\t%d\t%s\n", n.ID, n.Value, n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
					return err
				}))
			}()
			return &txscope.Response{Status: http.StatusOK, Stream: pr}, nil
		})
		if err != nil {
			return errs.Wrap(err, "list numbers")
		}

		if _, err := io.Copy(cmd.OutOrStdout(), resp.Stream); err != nil {
			_ = resp.Stream.Close()
			return errs.Wrap(err, "stream numbers")
		}
		return errs.Wrap(resp.Stream.Close(), "finish numbers stream")
	}),
}

func init() {
	rootCmd.AddCommand(numbersCmd)
	numbersCmd.AddCommand(numbersAddCmd, numbersListCmd)
}
