package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cmlabs-hris/bio-attendance-go/internal/app"
	"github.com/cmlabs-hris/bio-attendance-go/internal/config"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/biometric"
	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/jwt"
	biometricService "github.com/cmlabs-hris/bio-attendance-go/internal/service/biometric"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bioimport: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bioimport",
		Short: "Biometric export tooling",
		Long: `bioimport inspects time-clock exports and resolves them into attendance records
without going through the HTTP API.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newParseCmd(),
		newProcessCmd(),
		newAbsencesCmd(),
		newTokenCmd(),
	)
	return cmd
}

func newParseCmd() *cobra.Command {
	var timezone string
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse an export and summarise it without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone: %w", err)
			}
			parsed, err := parsePath(args[0], loc)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), parsed, loc)
		},
	}
	cmd.Flags().StringVar(&timezone, "tz", "Asia/Manila", "IANA time zone the export's clock times are in")
	return cmd
}

func newProcessCmd() *cobra.Command {
	var siteID, from, to string
	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Resolve an export and write attendance records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app.SetupLogger(cfg.App)

			batch := biometric.Batch{SiteID: siteID}
			if batch.PeriodStart, err = optionalDate(from); err != nil {
				return err
			}
			if batch.PeriodEnd, err = optionalDate(to); err != nil {
				return err
			}

			container, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			parsed, err := parsePath(args[0], container.Location)
			if err != nil {
				return err
			}
			batch.Events, batch.Skipped = parsed.Events, parsed.Skipped

			result, err := container.Processor.Process(ctx, batch)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&siteID, "site", "", "Site the export was collected at (default: resolve per device)")
	cmd.Flags().StringVar(&from, "from", "", "First shift date covered, YYYY-MM-DD (default: earliest scan)")
	cmd.Flags().StringVar(&to, "to", "", "Last shift date covered, YYYY-MM-DD (default: latest scan)")
	return cmd
}

func newAbsencesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "absences DATE",
		Short: "Write ncns records for scheduled employees with no record on DATE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			date, err := schedule.ParseShiftDate(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app.SetupLogger(cfg.App)

			container, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			result, err := container.Processor.MarkAbsences(ctx, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d ncns records written for %s\n", len(result.RecordsWritten), date)
			for _, w := range result.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "  warning: %s\n", w)
			}
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Issue an API access token for an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration).GenerateAccessToken(args[0], admin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", token, time.Unix(expiresAt, 0).Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "Allow the token to upload imports")
	return cmd
}

func parsePath(path string, loc *time.Location) (biometricService.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return biometricService.ParseResult{}, err
	}
	defer f.Close()
	return biometricService.ParseFile(f, path, loc)
}

func optionalDate(s string) (*schedule.ShiftDate, error) {
	if s == "" {
		return nil, nil
	}
	d, err := schedule.ParseShiftDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// writeSummary prints scan counts per name token and the skipped lines.
func writeSummary(w io.Writer, parsed biometricService.ParseResult, loc *time.Location) error {
	type tokenStats struct {
		scans       int
		first, last time.Time
	}
	stats := make(map[string]*tokenStats)
	for _, ev := range parsed.Events {
		s, ok := stats[ev.RawNameToken]
		if !ok {
			s = &tokenStats{first: ev.Timestamp, last: ev.Timestamp}
			stats[ev.RawNameToken] = s
		}
		s.scans++
		if ev.Timestamp.Before(s.first) {
			s.first = ev.Timestamp
		}
		if ev.Timestamp.After(s.last) {
			s.last = ev.Timestamp
		}
	}

	tokens := make([]string, 0, len(stats))
	for token := range stats {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	fmt.Fprintf(w, "%d scans, %d names, %d skipped lines\n\n", len(parsed.Events), len(tokens), len(parsed.Skipped))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCANS\tFIRST\tLAST")
	for _, token := range tokens {
		s := stats[token]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", token, s.scans,
			s.first.In(loc).Format("2006-01-02 15:04"), s.last.In(loc).Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(parsed.Skipped) > 0 {
		fmt.Fprintln(w, "\nskipped:")
		for _, perr := range parsed.Skipped {
			fmt.Fprintf(w, "  %s\n", perr.Error())
		}
	}
	return nil
}
