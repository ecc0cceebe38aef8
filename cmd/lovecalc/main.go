// Command lovecalc runs the compatibility games offline and inspects the
// stored Valentine responses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ashureev/valentine/internal/compat"
	"github.com/ashureev/valentine/internal/domain"
	"github.com/ashureev/valentine/internal/store"
	"github.com/spf13/cobra"
)

type options struct {
	json   bool
	dbPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "lovecalc",
		Short:         "Valentine compatibility calculator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	root.AddCommand(
		newFlamesCmd(opts),
		newPercentCmd(opts),
		newMessageCmd(opts),
		newStatsCmd(opts),
		newShowCmd(opts),
	)
	return root
}

func newFlamesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "flames NAME_A NAME_B",
		Short: "Play FLAMES for two names",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := compat.FlamesResult(args[0], args[1])
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s + %s: %s (%d%%)\n%s\n",
				args[0], args[1], r.Label, r.Percentage, r.Message)
			return err
		},
	}
}

func newPercentCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "percent NAME_A NAME_B",
		Short: "Compute the love percentage for two names",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := compat.LoveResult(args[0], args[1])
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s + %s: %d%%\n%s\n",
				args[0], args[1], r.Percentage, r.Message)
			return err
		},
	}
}

func newMessageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "message PERCENT",
		Short: "Print the message shown for a percentage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("percentage must be an integer: %w", err)
			}
			msg := compat.Message(p)
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"percentage": p, "message": msg})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count stored responses by outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(opts, func(ctx context.Context, repo store.Repository) error {
				total, err := repo.CountResponses(ctx, "")
				if err != nil {
					return err
				}
				yes, err := repo.CountResponses(ctx, domain.FinalYes)
				if err != nil {
					return err
				}
				stats := map[string]int64{"total": total, "yes": yes, "pending": total - yes}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "total: %d\nyes: %d\npending: %d\n",
					stats["total"], stats["yes"], stats["pending"])
				return err
			})
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, repo store.Repository) error {
				resp, err := repo.GetResponse(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	addDBFlag(cmd, opts)
	return cmd
}

func addDBFlag(cmd *cobra.Command, opts *options) {
	fallback := os.Getenv("DB_PATH")
	if fallback == "" {
		fallback = "./data/valentine.db"
	}
	cmd.Flags().StringVar(&opts.dbPath, "db", fallback, "path to the SQLite database")
}

func withStore(opts *options, fn func(context.Context, store.Repository) error) error {
	if _, err := os.Stat(opts.dbPath); err != nil {
		return fmt.Errorf("open database %s: %w", opts.dbPath, err)
	}
	repo, err := store.NewSQLite(opts.dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return fn(ctx, repo)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
