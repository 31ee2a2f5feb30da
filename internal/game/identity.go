package game

import "fmt"

// IdentityKind distinguishes human players from AI opponents.
type IdentityKind int

const (
	Human IdentityKind = iota
	AI
)

// Identity is a tagged variant identifying who occupies a seat: a human user
// or an AI profile. The two ID spaces are kept separate rather than
// sign-encoded into one.
type Identity struct {
	Kind      IdentityKind
	UserID    string // set when Kind == Human
	ProfileID string // set when Kind == AI
}

// HumanIdentity returns the identity of a human user.
func HumanIdentity(userID string) Identity {
	return Identity{Kind: Human, UserID: userID}
}

// AIIdentity returns the identity of an AI opponent profile.
func AIIdentity(profileID string) Identity {
	return Identity{Kind: AI, ProfileID: profileID}
}

// IsAI reports whether the identity is an AI profile.
func (id Identity) IsAI() bool {
	return id.Kind == AI
}

// String returns a log-friendly representation.
func (id Identity) String() string {
	if id.Kind == AI {
		return fmt.Sprintf("ai:%s", id.ProfileID)
	}
	return fmt.Sprintf("user:%s", id.UserID)
}
