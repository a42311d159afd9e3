package internal

const (
	MinSecret       = 1
	MaxSecret       = 100
	MaxPlayers      = MaxSecret - MinSecret + 1
	MaxNameLength   = 10
	MaxMemoLength   = 200
	MinTimerSeconds = 10
	MaxTimerSeconds = 600

	DefaultTimerSeconds = 180
	DefaultTitle        = "Rookie"
)

type Phase string

const (
	PhaseLobby       Phase = "LOBBY"
	PhaseSetting     Phase = "SETTING"
	PhaseGame        Phase = "GAME"
	PhaseDiscussion  Phase = "DISCUSSION"
	PhaseResult      Phase = "RESULT"
	PhaseFinalResult Phase = "FINAL_RESULT"
)

type Genre string

const (
	GenreNormal   Genre = "NORMAL"
	GenreAbnormal Genre = "ABNORMAL"
)

type GameMode string

const (
	// ModeAuto offers two catalog themes to the turn player.
	ModeAuto GameMode = "AUTO"
	// ModeOriginal lets the turn player author the theme.
	ModeOriginal GameMode = "ORIGINAL"
)

type Theme struct {
	Text  string `json:"text"`
	Min   string `json:"min"`
	Max   string `json:"max"`
	Genre Genre  `json:"genre"`
}

type Settings struct {
	GameMode              GameMode `json:"gameMode"`
	IsDiscussionEnabled   bool     `json:"isDiscussionEnabled"`
	TimerSeconds          int      `json:"timerSeconds"`
	IncludeNormalThemes   bool     `json:"includeNormalThemes"`
	IncludeAbnormalThemes bool     `json:"includeAbnormalThemes"`
}

func DefaultSettings() Settings {
	return Settings{
		GameMode:            ModeAuto,
		TimerSeconds:        DefaultTimerSeconds,
		IncludeNormalThemes: true,
	}
}

func (s Settings) Validate() error {
	switch s.GameMode {
	case ModeAuto, ModeOriginal:
	default:
		return Invalid("unknown game mode %q", s.GameMode)
	}
	if s.TimerSeconds < MinTimerSeconds || s.TimerSeconds > MaxTimerSeconds {
		return Invalid("timer must be between %d and %d seconds", MinTimerSeconds, MaxTimerSeconds)
	}
	return nil
}

type Award struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Bonus       int    `json:"bonus"`
}

// GuessTable maps guesser id to target id to the guessed value.
type GuessTable map[string]map[string]int

func (t GuessTable) Clone() GuessTable {
	out := make(GuessTable, len(t))
	for guesser, row := range t {
		cp := make(map[string]int, len(row))
		for target, v := range row {
			cp[target] = v
		}
		out[guesser] = cp
	}
	return out
}

func (t GuessTable) Get(guesserId, targetId string) (int, bool) {
	v, ok := t[guesserId][targetId]
	return v, ok
}

type RoundResult struct {
	PlayerId      string         `json:"playerId"`
	SecretNumber  int            `json:"secretNumber"`
	Guesses       map[string]int `json:"guesses"`
	IncomingScore int            `json:"incomingScore"`
	OutgoingScore int            `json:"outgoingScore"`
	ScoreGain     int            `json:"scoreGain"`
}

// ThemeChoice is written by a non-host turn player and committed by the host.
type ThemeChoice struct {
	PlayerId string `json:"playerId"`
	Theme    Theme  `json:"theme"`
}

// SessionState is the shared room document.
type SessionState struct {
	RoomId              string            `json:"roomId"`
	HostId              string            `json:"hostId"`
	Phase               Phase             `json:"phase"`
	Players             map[string]Player `json:"players"`
	Settings            Settings          `json:"settings"`
	RoundCount          int               `json:"roundCount"`
	CurrentTheme        *Theme            `json:"currentTheme"`
	ThemeCandidates     []Theme           `json:"themeCandidates"`
	ThemeChoice         *ThemeChoice      `json:"themeChoice,omitempty"`
	UsedThemeTexts      StringSet         `json:"usedThemeTexts"`
	CurrentTurnPlayerId string            `json:"currentTurnPlayerId"`
	PastTurnPlayerIds   StringSet         `json:"pastTurnPlayerIds"`
	SharedMemos         map[string]string `json:"sharedMemos"`
	AllGuesses          GuessTable        `json:"allGuesses"`
	DiscussionSnapshot  GuessTable        `json:"discussionSnapshot"`
	DiscussionVoted     MarkSet           `json:"discussionVoted"`
	RoundResults        []RoundResult     `json:"roundResults"`
	GameHistory         [][]RoundResult   `json:"gameHistory"`
	LastUpdated         int64             `json:"lastUpdated"`
}

// NewSessionState returns a lobby document hosted by host.
func NewSessionState(roomId string, host Player) SessionState {
	host.IsHost = true
	return SessionState{
		RoomId:      roomId,
		HostId:      host.Id,
		Phase:       PhaseLobby,
		Players:     map[string]Player{host.Id: host},
		Settings:    DefaultSettings(),
		SharedMemos: map[string]string{},
		AllGuesses:  GuessTable{},
	}
}
