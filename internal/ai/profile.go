// Package ai implements the heuristic decision engine for AI opponents.
package ai

import (
	"fmt"
	"time"
)

// Style is an AI profile's playing style.
type Style int

const (
	Rock Style = iota
	TightAggressive
	LooseAggressive
	CallingStation
	Maniac
)

func (s Style) String() string {
	return [...]string{"rock", "tight_aggressive", "loose_aggressive", "calling_station", "maniac"}[s]
}

// ParseStyle decodes a style name from configuration.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "rock":
		return Rock, nil
	case "tight_aggressive":
		return TightAggressive, nil
	case "loose_aggressive":
		return LooseAggressive, nil
	case "calling_station":
		return CallingStation, nil
	case "maniac":
		return Maniac, nil
	default:
		return 0, fmt.Errorf("unknown playing style %q", s)
	}
}

// Skill is an AI profile's skill level.
type Skill int

const (
	Beginner Skill = iota
	Novice
	Intermediate
	Advanced
	Expert
)

func (s Skill) String() string {
	return [...]string{"beginner", "novice", "intermediate", "advanced", "expert"}[s]
}

// ParseSkill decodes a skill name from configuration.
func ParseSkill(s string) (Skill, error) {
	switch s {
	case "beginner":
		return Beginner, nil
	case "novice":
		return Novice, nil
	case "intermediate":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	case "expert":
		return Expert, nil
	default:
		return 0, fmt.Errorf("unknown skill level %q", s)
	}
}

// Profile configures one AI opponent.
type Profile struct {
	ID             string
	Name           string
	Style          Style
	Skill          Skill
	Aggression     float64 // [0,1], scales bet sizing
	BluffFrequency float64 // [0,1], probability of bluffing when gated in
	FoldToPressure float64 // [0,1], extra fold tendency against raises
	Bankroll       int
}

// ThinkingDelay returns how long this profile pretends to think before
// acting. Stronger players decide faster. The jitter fraction is in [0,1).
func (p Profile) ThinkingDelay(jitter float64) time.Duration {
	var base, spread time.Duration
	switch p.Skill {
	case Beginner:
		base, spread = 2*time.Second, 3*time.Second
	case Novice:
		base, spread = 1500*time.Millisecond, 2500*time.Millisecond
	case Intermediate:
		base, spread = time.Second, 2*time.Second
	case Advanced:
		base, spread = 750*time.Millisecond, 1250*time.Millisecond
	default:
		base, spread = 500*time.Millisecond, time.Second
	}
	return base + time.Duration(jitter*float64(spread))
}
