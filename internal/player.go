package internal

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

type Player struct {
	Id              string  `json:"id"`
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	SecretNumber    int     `json:"secretNumber"`
	Score           int     `json:"score"`
	ScoreHistory    []int   `json:"scoreHistory"`
	CumulativeScore int     `json:"cumulativeScore"`
	Title           string  `json:"title"`
	IsHost          bool    `json:"isHost"`
	IsNpc           bool    `json:"isNpc"`
	IsReady         bool    `json:"isReady"`
	Awards          []Award `json:"awards"`
	JoinedAt        int64   `json:"joinedAt"`
}

// Palette is the set of colors a player may pick in the lobby.
var Palette = []string{
	"#FF5252", "#448AFF", "#66BB6A", "#FFD740", "#E040FB", "#8D6E63",
	"#FFFFFF", "#9E9E9E", "#C6FF00", "#FF4081", "#18FFFF",
}

// overflowColors extends Palette so a full roster never shares a color.
var overflowColors = spreadColors(MaxPlayers)

// spreadColors steps hue by the golden angle, skipping anything already in
// Palette or earlier in the list.
func spreadColors(n int) []string {
	seen := make(map[string]bool, len(Palette)+n)
	for _, c := range Palette {
		seen[c] = true
	}
	out := make([]string, 0, n)
	for i := 0; len(out) < n; i++ {
		hue := math.Mod(float64(i)*137.508, 360)
		value := 0.95 - 0.25*float64(i%3)
		c := hsvHex(hue, 0.7, value)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func hsvHex(h, s, v float64) string {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g = c, x
	case h < 120:
		r, g = x, c
	case h < 180:
		g, b = c, x
	case h < 240:
		g, b = x, c
	case h < 300:
		r, b = x, c
	default:
		r, b = c, x
	}
	to := func(f float64) int { return int(math.Round((f + m) * 255)) }
	return fmt.Sprintf("#%02X%02X%02X", to(r), to(g), to(b))
}

func NewPlayer(id, name, color string, joinedAt int64) Player {
	return Player{
		Id:       id,
		Name:     strings.TrimSpace(name),
		Color:    color,
		Title:    DefaultTitle,
		JoinedAt: joinedAt,
	}
}

// ValidateName reports a user-facing message for a bad display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Invalid("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Invalid("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

func (p Player) Clone() Player {
	p.ScoreHistory = append([]int(nil), p.ScoreHistory...)
	p.Awards = append([]Award(nil), p.Awards...)
	return p
}

// TotalHistory is the unweighted sum of the raw per-round gains.
func (p Player) TotalHistory() int {
	total := 0
	for _, gain := range p.ScoreHistory {
		total += gain
	}
	return total
}

// ResetForLobby clears everything a finished game accumulated.
// Identity, name and color survive.
func (p Player) ResetForLobby() Player {
	p.SecretNumber = 0
	p.Score = 0
	p.ScoreHistory = nil
	p.CumulativeScore = 0
	p.Title = DefaultTitle
	p.Awards = nil
	p.IsReady = false
	return p
}
