package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/docstore"
	"github.com/scythe504/wavelength-backend/internal/game"
	"github.com/scythe504/wavelength-backend/internal/logging"
	"github.com/scythe504/wavelength-backend/internal/random"
)

const hostName = "Host"

var customTheme = internal.Theme{Text: "How spicy is this food", Min: "Mild", Max: "Fiery"}

func run(ctx context.Context, opts *options, out io.Writer) error {
	logging.Setup(opts.logLevel, opts.pretty)

	seed := opts.seed
	if seed == 0 {
		var err error
		if seed, err = random.NewSeed(); err != nil {
			return err
		}
	}
	rng := random.NewLocked(random.New(seed))

	settings := internal.DefaultSettings()
	settings.GameMode = internal.GameMode(strings.ToUpper(opts.mode))
	settings.IsDiscussionEnabled = opts.discussion

	changes := make(chan struct{}, 1)
	gameOpts := game.Options{
		Rand:     rng,
		Debounce: opts.debounce,
		OnChange: func(internal.SessionState) {
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	}

	var s *game.Session
	if opts.relay == "" {
		host := internal.NewPlayer("p1", hostName, internal.Palette[0], 0)
		var err error
		if s, err = game.NewLocalSession(gameOpts, host); err != nil {
			return err
		}
	} else {
		store, err := docstore.NewRemoteStore(opts.relay)
		if err != nil {
			return err
		}
		state, err := game.CreateRoom(ctx, store, rng, hostName, "")
		if err != nil {
			return err
		}
		if !opts.keep {
			defer func() { _ = game.DeleteRoom(context.Background(), store, state.RoomId) }()
		}
		gameOpts.RoomId = state.RoomId
		gameOpts.SelfId = state.HostId
		if s, err = game.JoinReplicated(ctx, gameOpts, store); err != nil {
			return err
		}
		fmt.Fprintf(out, "room %s on %s\n", state.RoomId, opts.relay)
	}
	defer s.Close()

	fmt.Fprintf(out, "seed %d, %d NPCs, mode %s, discussion %t\n", seed, opts.npcs, settings.GameMode, settings.IsDiscussionEnabled)
	for i := 0; i < opts.npcs; i++ {
		if _, err := s.AddNPC(ctx, fmt.Sprintf("Bot %d", i+1)); err != nil {
			return err
		}
	}
	if err := waitFor(ctx, s, changes, func(st internal.SessionState) bool {
		return len(st.Players) == opts.npcs+1
	}); err != nil {
		return err
	}

	if err := s.StartGame(ctx, settings); err != nil {
		return err
	}
	return drive(ctx, s, rng, changes, out)
}

// waitFor blocks until cond holds for the session's projection.
func waitFor(ctx context.Context, s *game.Session, changes <-chan struct{}, cond func(internal.SessionState) bool) error {
	for !cond(s.Snapshot()) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
		}
	}
	return nil
}

// drive plays the host's part once per step until the game ends.
func drive(ctx context.Context, s *game.Session, rng random.Source, changes <-chan struct{}, out io.Writer) error {
	acted := map[string]bool{}
	for {
		st := s.Snapshot()
		if st.Phase == internal.PhaseFinalResult {
			printFinal(out, st)
			return nil
		}

		step := fmt.Sprintf("%s#%d", st.Phase, st.RoundCount)
		if !acted[step] {
			acted[step] = true
			if err := act(ctx, s, st, rng, out); err != nil {
				return fmt.Errorf("%s: %w", step, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
		}
	}
}

func act(ctx context.Context, s *game.Session, st internal.SessionState, rng random.Source, out io.Writer) error {
	self := s.SelfId()
	switch st.Phase {
	case internal.PhaseSetting:
		theme := customTheme
		if st.Settings.GameMode != internal.ModeOriginal && len(st.ThemeCandidates) > 0 {
			theme = random.Pick(rng, st.ThemeCandidates)
		}
		return s.SelectTheme(ctx, self, theme)
	case internal.PhaseGame:
		placements := make(map[string]int, len(st.Players)-1)
		for id := range st.Players {
			if id != self {
				placements[id] = random.Between(rng, internal.MinSecret, internal.MaxSecret)
			}
		}
		return s.SubmitVotes(ctx, self, placements, "gut feeling")
	case internal.PhaseDiscussion:
		return s.SubmitVotes(ctx, self, st.DiscussionSnapshot[self], "standing firm")
	case internal.PhaseResult:
		printRound(out, st)
		return s.AdvanceRound(ctx)
	}
	return nil
}

func printRound(out io.Writer, st internal.SessionState) {
	theme := "?"
	if st.CurrentTheme != nil {
		theme = fmt.Sprintf("%s (%s .. %s)", st.CurrentTheme.Text, st.CurrentTheme.Min, st.CurrentTheme.Max)
	}
	fmt.Fprintf(out, "\nround %d: %s\n", st.RoundCount+1, theme)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tSECRET\tGAIN\tSCORE\tTITLE\tAWARDS")
	for _, p := range game.Standings(st) {
		names := make([]string, 0, len(p.Awards))
		for _, a := range p.Awards {
			names = append(names, a.Name)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			p.Name, p.SecretNumber, lastGain(p), p.Score, p.Title, strings.Join(names, ", "))
	}
	_ = tw.Flush()
}

func printFinal(out io.Writer, st internal.SessionState) {
	fmt.Fprintf(out, "\nfinal standings after %d rounds\n", len(st.GameHistory))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tTOTAL\tCUMULATIVE\tTITLE")
	for i, p := range game.Standings(st) {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", i+1, p.Name, p.Score, p.CumulativeScore, p.Title)
	}
	_ = tw.Flush()
}

func lastGain(p internal.Player) int {
	if len(p.ScoreHistory) == 0 {
		return 0
	}
	return p.ScoreHistory[len(p.ScoreHistory)-1]
}
