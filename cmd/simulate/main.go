package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	npcs       int
	discussion bool
	mode       string
	seed       int64
	relay      string
	keep       bool
	debounce   time.Duration
	timeout    time.Duration
	logLevel   string
	pretty     bool
}

func (o *options) validate() error {
	if o.npcs < 1 || o.npcs > 20 {
		return fmt.Errorf("invalid npc count (must be between 1-20 inclusive): %d", o.npcs)
	}
	switch strings.ToUpper(o.mode) {
	case "AUTO", "ORIGINAL":
	default:
		return fmt.Errorf("unknown mode %q (want auto or original)", o.mode)
	}
	if o.timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.timeout)
	}
	return nil
}

func newCmd(opts *options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WAVELENGTH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a full game between a scripted host and NPCs.",
		Long: "Plays every round of a game between a scripted host and computer players, locally or\n" +
			"through a running relay, and prints each round's results and the final standings.",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return run(ctx, opts, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVarP(&opts.npcs, "npcs", "n", 3, "number of NPC players (env: WAVELENGTH_NPCS)")
	fs.BoolVarP(&opts.discussion, "discussion", "d", false, "enable the discussion phase (env: WAVELENGTH_DISCUSSION)")
	fs.StringVarP(&opts.mode, "mode", "m", "auto", "theme mode, auto or original (env: WAVELENGTH_MODE)")
	fs.Int64Var(&opts.seed, "seed", 0, "random seed, 0 for a fresh one (env: WAVELENGTH_SEED)")
	fs.StringVar(&opts.relay, "relay", "", "relay base URL; plays locally when empty (env: WAVELENGTH_RELAY)")
	fs.BoolVar(&opts.keep, "keep", false, "leave the relay room in place afterwards (env: WAVELENGTH_KEEP)")
	fs.DurationVar(&opts.debounce, "debounce", 300*time.Millisecond, "host evaluation delay in relay mode (env: WAVELENGTH_DEBOUNCE)")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "give up after this long (env: WAVELENGTH_TIMEOUT)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (env: WAVELENGTH_LOG_LEVEL)")
	fs.BoolVar(&opts.pretty, "pretty", true, "human-readable logs (env: WAVELENGTH_PRETTY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCmd(&options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(1)
	}
}
