package demostf

import (
	"strconv"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

// ParseSteamID parses any of the textual steam id encodings accepted by the
// service (steam64 digits, STEAM_X:Y:Z or [U:1:N]) into its canonical form.
// Returns a *ParseError when the input matches no known encoding.
func ParseSteamID(s string) (steamid.SteamID, error) {
	sid := steamid.New(s)
	if !sid.Valid() {
		return steamid.SteamID{}, &ParseError{Input: s}
	}
	return sid, nil
}

// steam64 renders a steam id the way the api expects it in paths and query
// strings.
func steam64(sid steamid.SteamID) string {
	return strconv.FormatInt(sid.Int64(), 10)
}
