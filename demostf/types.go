package demostf

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

// Hash is the md5 digest of a demo file as tracked by the api.
type Hash [16]byte

// String returns the lowercase hex encoding used on the wire.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is unset. The api reports an empty hash for
// demos that have not been verified yet.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// UnmarshalJSON decodes the api's hex representation, treating an empty
// string as the zero hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return fmt.Errorf("invalid hash length %d", len(raw))
	}
	copy(h[:], raw)
	return nil
}

// Team is the side a player spawned on.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Class is a TF2 player class as reported by the api.
type Class string

const (
	ClassScout    Class = "scout"
	ClassSoldier  Class = "soldier"
	ClassPyro     Class = "pyro"
	ClassDemoman  Class = "demoman"
	ClassHeavy    Class = "heavyweapons"
	ClassEngineer Class = "engineer"
	ClassMedic    Class = "medic"
	ClassSniper   Class = "sniper"
	ClassSpy      Class = "spy"
)

// Demo is the record of one uploaded demo. Values are immutable once decoded.
type Demo struct {
	ID          uint32
	URL         string
	Name        string
	Server      string
	Duration    int
	Nick        string
	Map         string
	Time        time.Time
	Red         string
	Blue        string
	RedScore    int
	BlueScore   int
	PlayerCount int
	Uploader    UserRef
	Hash        Hash
	Backend     string
	Path        string
	// Players is only set on demos fetched with Get, list responses omit it.
	// Use FetchPlayers to load it on demand.
	Players []Player
}

type demoWire struct {
	ID          *uint32  `json:"id"`
	URL         string   `json:"url"`
	Name        *string  `json:"name"`
	Server      string   `json:"server"`
	Duration    int      `json:"duration"`
	Nick        string   `json:"nick"`
	Map         *string  `json:"map"`
	Time        int64    `json:"time"`
	Red         string   `json:"red"`
	Blue        string   `json:"blue"`
	RedScore    int      `json:"redScore"`
	BlueScore   int      `json:"blueScore"`
	PlayerCount int      `json:"playerCount"`
	Uploader    UserRef  `json:"uploader"`
	Hash        Hash     `json:"hash"`
	Backend     string   `json:"backend"`
	Path        string   `json:"path"`
	Players     []Player `json:"players"`
}

// UnmarshalJSON decodes a demo object, requiring id, name and map to be
// present. All other fields default when absent.
func (d *Demo) UnmarshalJSON(data []byte) error {
	var w demoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.ID == nil:
		return errors.New("demo object missing id")
	case w.Name == nil:
		return errors.New("demo object missing name")
	case w.Map == nil:
		return errors.New("demo object missing map")
	}
	*d = Demo{
		ID:          *w.ID,
		URL:         w.URL,
		Name:        *w.Name,
		Server:      w.Server,
		Duration:    w.Duration,
		Nick:        w.Nick,
		Map:         *w.Map,
		Time:        time.Unix(w.Time, 0).UTC(),
		Red:         w.Red,
		Blue:        w.Blue,
		RedScore:    w.RedScore,
		BlueScore:   w.BlueScore,
		PlayerCount: w.PlayerCount,
		Uploader:    w.Uploader,
		Hash:        w.Hash,
		Backend:     w.Backend,
		Path:        w.Path,
		Players:     w.Players,
	}
	return nil
}

// FetchPlayers returns the stored player list, fetching the full demo when the
// list response omitted it.
func (d *Demo) FetchPlayers(ctx context.Context, client *Client) ([]Player, error) {
	if d.Players != nil {
		return d.Players, nil
	}
	full, err := client.Get(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return full.Players, nil
}

// User is a demos.tf account.
type User struct {
	ID      uint32
	SteamID steamid.SteamID
	Name    string
}

type userWire struct {
	ID      *uint32 `json:"id"`
	SteamID string  `json:"steamid"`
	Name    string  `json:"name"`
}

// UnmarshalJSON decodes a user object, requiring the id to be present.
func (u *User) UnmarshalJSON(data []byte) error {
	var w userWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == nil {
		return errors.New("user object missing id")
	}
	user := User{ID: *w.ID, Name: w.Name}
	if w.SteamID != "" {
		sid, err := ParseSteamID(w.SteamID)
		if err != nil {
			return err
		}
		user.SteamID = sid
	}
	*u = user
	return nil
}

// UserRef references a user, carrying either the bare id or the full user
// information depending on the endpoint.
type UserRef struct {
	id   uint32
	user *User
}

// ID returns the id of the referenced user.
func (r UserRef) ID() uint32 {
	if r.user != nil {
		return r.user.ID
	}
	return r.id
}

// User returns the stored user info if available.
func (r UserRef) User() *User {
	return r.user
}

// Resolve returns the stored user info, fetching it from the api when the
// reference only carries an id.
func (r UserRef) Resolve(ctx context.Context, client *Client) (*User, error) {
	if r.user != nil {
		return r.user, nil
	}
	return client.GetUser(ctx, r.id)
}

// UnmarshalJSON accepts either a bare numeric id or a full user object.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	var id uint32
	if err := json.Unmarshal(data, &id); err == nil {
		*r = UserRef{id: id}
		return nil
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return err
	}
	*r = UserRef{id: user.ID, user: &user}
	return nil
}

// Player is one player in a demo.
type Player struct {
	ID   uint32
	User User
	Team Team
	// Class the player spawned the most as.
	Class   Class
	Kills   int
	Assists int
	Deaths  int
}

// the player objects nest the user fields directly instead of carrying a user
// object, with the user id under "user_id"
type playerWire struct {
	ID      *uint32 `json:"id"`
	UserID  uint32  `json:"user_id"`
	SteamID string  `json:"steamid"`
	Name    string  `json:"name"`
	Team    Team    `json:"team"`
	Class   Class   `json:"class"`
	Kills   int     `json:"kills"`
	Assists int     `json:"assists"`
	Deaths  int     `json:"deaths"`
}

// UnmarshalJSON decodes a player object, flattened user fields included.
func (p *Player) UnmarshalJSON(data []byte) error {
	var w playerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == nil {
		return errors.New("player object missing id")
	}
	player := Player{
		ID:      *w.ID,
		User:    User{ID: w.UserID, Name: w.Name},
		Team:    w.Team,
		Class:   w.Class,
		Kills:   w.Kills,
		Assists: w.Assists,
		Deaths:  w.Deaths,
	}
	if w.SteamID != "" {
		sid, err := ParseSteamID(w.SteamID)
		if err != nil {
			return err
		}
		player.User.SteamID = sid
	}
	*p = player
	return nil
}

// ChatMessage is a chat line sent during a demo.
type ChatMessage struct {
	User    string `json:"user"`
	Time    int    `json:"time"`
	Message string `json:"message"`
}
