package demostf

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// ListOrder is the ordering of a demo listing by upload time.
type ListOrder string

const (
	OrderAscending  ListOrder = "ASC"
	OrderDescending ListOrder = "DESC"
)

// GameType is a game format as recognized by demos.tf.
type GameType string

const (
	GameTypeHL        GameType = "hl"
	GameTypeProlander GameType = "prolander"
	GameTypeSixes     GameType = "6v6"
	GameTypeFours     GameType = "4v4"
)

// ListParams shapes a demo listing: ordering and optional filters. The zero
// value lists everything in the service's default order (newest first). Each
// With method returns a modified copy, leaving the receiver untouched, so
// params can be shared and extended freely:
//
//	params := demostf.ListParams{}.
//		WithOrder(demostf.OrderAscending).
//		WithMap("cp_process_final")
type ListParams struct {
	order    ListOrder
	backend  string
	mapName  string
	players  []steamid.SteamID
	gameType GameType
	after    time.Time
	before   time.Time
	afterID  uint64
	beforeID uint64
}

// WithOrder sets the sort order.
func (p ListParams) WithOrder(order ListOrder) ListParams {
	p.order = order
	return p
}

// WithBackend filters demos by the storage backend they live on.
func (p ListParams) WithBackend(backend string) ListParams {
	p.backend = backend
	return p
}

// WithMap filters demos by map name.
func (p ListParams) WithMap(mapName string) ListParams {
	p.mapName = mapName
	return p
}

// WithPlayers filters demos to those all given players took part in.
func (p ListParams) WithPlayers(players ...steamid.SteamID) ListParams {
	p.players = append([]steamid.SteamID(nil), players...)
	return p
}

// WithType filters demos by game format.
func (p ListParams) WithType(gameType GameType) ListParams {
	p.gameType = gameType
	return p
}

// WithAfter filters demos to those uploaded after the given time.
func (p ListParams) WithAfter(after time.Time) ListParams {
	p.after = after
	return p
}

// WithBefore filters demos to those uploaded before the given time.
func (p ListParams) WithBefore(before time.Time) ListParams {
	p.before = before
	return p
}

// WithAfterID filters demos to ids above the given one.
func (p ListParams) WithAfterID(id uint64) ListParams {
	p.afterID = id
	return p
}

// WithBeforeID filters demos to ids below the given one.
func (p ListParams) WithBeforeID(id uint64) ListParams {
	p.beforeID = id
	return p
}

// Order returns the effective sort order.
func (p ListParams) Order() ListOrder {
	if p.order == "" {
		return OrderDescending
	}
	return p.order
}

// listQuery is the wire encoding of a listing request. Unset filters carry
// omitempty so they never show up as empty query values.
type listQuery struct {
	Page     int    `url:"page"`
	Order    string `url:"order"`
	Backend  string `url:"backend,omitempty"`
	Map      string `url:"map,omitempty"`
	Players  string `url:"players,omitempty"`
	Type     string `url:"type,omitempty"`
	After    int64  `url:"after,omitempty"`
	Before   int64  `url:"before,omitempty"`
	AfterID  uint64 `url:"after_id,omitempty"`
	BeforeID uint64 `url:"before_id,omitempty"`
}

// values encodes the params and page into query parameters. Pages start at 1,
// anything below fails with ErrInvalidPage before any request is made.
func (p ListParams) values(page int) (url.Values, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}

	q := listQuery{
		Page:     page,
		Order:    string(p.Order()),
		Backend:  p.backend,
		Map:      p.mapName,
		Players:  joinPlayers(p.players),
		Type:     string(p.gameType),
		AfterID:  p.afterID,
		BeforeID: p.beforeID,
	}
	if !p.after.IsZero() {
		q.After = p.after.Unix()
	}
	if !p.before.IsZero() {
		q.Before = p.before.Unix()
	}

	values, err := query.Values(q)
	if err != nil {
		return nil, &DecodeError{Op: "encode params", Err: err}
	}
	return values, nil
}

// joinPlayers renders steam ids as the comma separated steam64 list the api
// expects.
func joinPlayers(players []steamid.SteamID) string {
	if len(players) == 0 {
		return ""
	}
	parts := make([]string, len(players))
	for i, sid := range players {
		parts[i] = steam64(sid)
	}
	return strings.Join(parts, ",")
}
