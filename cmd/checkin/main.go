package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pbaille/checkin/internal/api"
	"github.com/pbaille/checkin/internal/config"
	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/entries"
	"github.com/pbaille/checkin/internal/identity"
	"github.com/pbaille/checkin/internal/insights"
	"github.com/pbaille/checkin/internal/logging"
	"github.com/pbaille/checkin/internal/report"
	"github.com/pbaille/checkin/internal/store"
	"github.com/pbaille/checkin/internal/tracker"
)

var (
	profileDir string
	dbPath     string
	logLevel   string
	quota      string
	timezone   string
	ephemeral  bool
)

func main() {
	defaultProfile := os.Getenv(config.EnvProfile)
	if defaultProfile == "" {
		defaultProfile = config.DefaultProfileDir()
	}

	rootCmd := &cobra.Command{
		Use:           "checkin",
		Short:         "Log how your energy, stress and productivity feel through the day",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&profileDir, "profile", defaultProfile, "profile directory")
	flags.StringVar(&dbPath, "db", "", "database path (default <profile>/checkin.db)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&quota, "quota", "", "storage cap in bytes, 0 for none")
	flags.StringVar(&timezone, "tz", "", "IANA timezone used for today")
	flags.BoolVar(&ephemeral, "ephemeral", false, "keep everything in memory for this run")

	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(quickCmd())
	rootCmd.AddCommand(simpleCmd())
	rootCmd.AddCommand(eodCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(insightsCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", friendly(err))
		os.Exit(1)
	}
}

// app is one opened profile.
type app struct {
	cfg     *config.Config
	log     logging.Logger
	tracker *tracker.Tracker
	close   func() error
}

func loadConfig() (*config.Config, error) {
	// Ephemeral runs leave the filesystem alone.
	if !ephemeral {
		if err := os.MkdirAll(profileDir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
	}

	cfg, err := config.Load(profileDir, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if quota != "" {
		if err := cfg.OverrideQuota(quota); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	now, err := cfg.Clock()
	if err != nil {
		return nil, err
	}

	log := logging.New(os.Stderr, cfg.LogLevel)

	var (
		kv      store.KV
		closeFn = func() error { return nil }
	)
	if ephemeral {
		kv = store.NewMemory(cfg.QuotaBytes)
	} else {
		s, err := store.New(ctx, cfg.DBPath, store.WithQuota(cfg.QuotaBytes))
		if err != nil {
			return nil, err
		}
		kv, closeFn = s, s.Close
	}

	idm := identity.NewManager(kv, log, now)
	repo := entries.NewRepository(kv, log)
	return &app{
		cfg:     cfg,
		log:     log,
		tracker: tracker.New(ctx, idm, repo, log, now),
		close:   closeFn,
	}, nil
}

// withApp opens the profile for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func registerCmd() *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account and sign in",
		Long: `Create an account in this profile and sign in.

Accounts only separate people sharing one profile. Passwords are kept as a
simple 32-bit hash that offers no real protection, so do not reuse a password
you care about.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				pw, err := passwordFrom(cmd, password)
				if err != nil {
					return err
				}
				s, err := a.tracker.Register(ctx, args[0], pw, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are signed in as %s.\n", s.Name, s.Username)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (default: username)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func loginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				pw, err := passwordFrom(cmd, password)
				if err != nil {
					return err
				}
				s, err := a.tracker.Login(ctx, args[0], pw)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s.\n", s.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.tracker.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				s, ok := a.tracker.Session()
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), signed in %s\n", s.Name, s.Username, s.Started.Local().Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts in this profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				users := a.tracker.Users(ctx)
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No accounts yet. Use 'checkin register' to create one.")
					return nil
				}
				for _, u := range users {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", u.Username, u.Name)
				}
				return nil
			})
		},
	}
}

func addCmd() *cobra.Command {
	var (
		in       tracker.DetailedInput
		duration int
	)

	cmd := &cobra.Command{
		Use:   "add [task]",
		Short: "Log a detailed check-in",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				in.Task = strings.Join(args, " ")
				if cmd.Flags().Changed("duration") {
					in.Duration = &duration
				}
				e, err := a.tracker.LogDetailed(ctx, in)
				if err != nil {
					return err
				}
				printSaved(cmd.OutOrStdout(), e)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Date, "date", "", "date as YYYY-MM-DD (default today)")
	f.StringVar(&in.Time, "time", "", "time as HH:MM (default now)")
	f.StringVarP(&in.Category, "category", "c", tracker.DefaultCategory, "one of: "+strings.Join(domain.Categories, ", "))
	f.IntVar(&duration, "duration", 0, "minutes spent")
	f.IntVarP(&in.Energy, "energy", "e", domain.NeutralRating, "energy 1-5")
	f.IntVarP(&in.Stress, "stress", "s", domain.NeutralRating, "stress 1-5")
	f.IntVar(&in.Productivity, "prod", domain.NeutralRating, "productivity 1-5")
	f.StringVarP(&in.Notes, "notes", "n", "", "free-form notes")
	return cmd
}

func quickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quick [energy]",
		Short: "Log just your energy level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			energy, err := parseRating(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				e, err := a.tracker.LogQuick(ctx, energy)
				if err != nil {
					return err
				}
				printSaved(cmd.OutOrStdout(), e)
				return nil
			})
		},
	}
}

func simpleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simple [energy] [note]",
		Short: "Log your energy level with a short note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			energy, err := parseRating(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				e, err := a.tracker.LogSimple(ctx, energy, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				printSaved(cmd.OutOrStdout(), e)
				return nil
			})
		},
	}
}

func eodCmd() *cobra.Command {
	var energy int

	cmd := &cobra.Command{
		Use:   "eod [reflection]",
		Short: "Close the day with a reflection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var override *int
				if cmd.Flags().Changed("energy") {
					override = &energy
				}
				e, err := a.tracker.LogEndOfDay(ctx, strings.Join(args, " "), override)
				if err != nil {
					return err
				}
				printSaved(cmd.OutOrStdout(), e)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&energy, "energy", "e", 0, "energy 1-5 (default: today's average)")
	return cmd
}

func listCmd() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List check-ins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if _, ok := a.tracker.Session(); !ok {
					return tracker.ErrNoSession
				}
				list := a.tracker.View(insights.ParseView(view))
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No check-ins in this period yet.")
					return nil
				}
				for _, e := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s  E%d S%d P%d  %-10s %s\n",
						report.ShortID(e.ID), e.Date, e.Time, e.Energy, e.Stress, e.Productivity,
						e.TaskType, truncate(e.Task, 50))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&view, "view", "v", string(insights.ViewToday), "today, week or all")
	return cmd
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a check-in by id or id suffix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if _, ok := a.tracker.Session(); !ok {
					return tracker.ErrNoSession
				}
				id, err := resolveEntryID(a.tracker.Entries(), args[0])
				if err != nil {
					return err
				}
				if _, err := a.tracker.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", report.ShortID(id))
				return nil
			})
		},
	}
}

// resolveEntryID finds the one entry whose id is ref or ends with ref.
func resolveEntryID(list []domain.Entry, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("entry id is required")
	}

	var matches []string
	for _, e := range list {
		if e.ID == ref {
			return e.ID, nil
		}
		if strings.HasSuffix(e.ID, ref) {
			matches = append(matches, e.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("entry not found: %s", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d entries, use more characters", ref, len(matches))
	}
}

func insightsCmd() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show averages and flagged moments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if _, ok := a.tracker.Session(); !ok {
					return tracker.ErrNoSession
				}
				fmt.Fprint(cmd.OutOrStdout(), report.InsightsMarkdown(a.tracker.Insights(insights.ParseView(view))))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&view, "view", "v", string(insights.ViewToday), "today, week or all")
	return cmd
}

func chartCmd() *cobra.Command {
	var (
		view   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Plot energy, stress and productivity over time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if _, ok := a.tracker.Session(); !ok {
					return tracker.ErrNoSession
				}
				chart := a.tracker.Chart(insights.ParseView(view))
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(chart)
				}
				fmt.Fprint(cmd.OutOrStdout(), report.ChartMarkdown(chart))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&view, "view", "v", string(insights.ViewToday), "today, week or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the series as JSON")
	return cmd
}

func reportCmd() *cobra.Command {
	var (
		view  string
		style string
		width int
		plain bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a full report for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				s, ok := a.tracker.Session()
				if !ok {
					return tracker.ErrNoSession
				}
				v := insights.ParseView(view)
				md := report.Markdown(report.Report{
					Name:       s.Name,
					View:       v,
					Generated:  a.tracker.Now(),
					Entries:    a.tracker.View(v),
					Insights:   a.tracker.Insights(v),
					Categories: a.tracker.Categories(v),
					Chart:      a.tracker.Chart(v),
				})
				if plain {
					fmt.Fprint(cmd.OutOrStdout(), md)
					return nil
				}
				out, err := report.Render(md, style, width)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&view, "view", "v", string(insights.ViewWeek), "today, week or all")
	f.StringVar(&style, "style", "", "glamour style: dark, light, notty (default: detect)")
	f.IntVar(&width, "width", 100, "wrap width")
	f.BoolVar(&plain, "plain", false, "print raw markdown")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(cmd, func(_ context.Context, a *app) error {
				if addr == "" {
					addr = a.cfg.Addr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
				return api.New(a.tracker, addr, a.log).Run(ctx)
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default 127.0.0.1:7420)")
	return cmd
}

func parseRating(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrValidation, raw)
	}
	return n, nil
}

// passwordFrom returns the flag value, or prompts without echo on a terminal
// and reads a line otherwise.
func passwordFrom(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printSaved(w io.Writer, e domain.Entry) {
	fmt.Fprintf(w, "Saved %s  %s %s  energy %d (%s)\n",
		report.ShortID(e.ID), e.Date, e.Time, e.Energy, domain.EnergyLabel(e.Energy))
}

// friendly turns the errors a user can act on into a hint.
func friendly(err error) string {
	switch {
	case errors.Is(err, tracker.ErrNoSession):
		return "not signed in; run 'checkin login <username>' or 'checkin register <username>'"
	case errors.Is(err, identity.ErrUserNotFound):
		return "no such user; run 'checkin users' to see accounts"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "wrong password"
	case errors.Is(err, identity.ErrDuplicateUsername):
		return "that username is taken"
	case errors.Is(err, store.ErrStoreQuotaExceeded):
		return "storage is full; delete old check-ins or raise --quota"
	default:
		return err.Error()
	}
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
