package showdown

import (
	"net/url"
	"strconv"
	"strings"
)

// Endpoints builds the URLs of the public replay and ladder servers
type Endpoints struct {
	ReplayURL string
	LadderURL string
}

// NewEndpoints trims trailing slashes from both base URLs
func NewEndpoints(replayURL, ladderURL string) Endpoints {
	return Endpoints{
		ReplayURL: strings.TrimRight(replayURL, "/"),
		LadderURL: strings.TrimRight(ladderURL, "/"),
	}
}

// Recent returns the URL of the most recent public replays
func (e Endpoints) Recent() string {
	return e.ReplayURL + "/search.json"
}

// Search returns the URL of one results page for a format. The format is
// passed in its display form, e.g. "[Gen 9] OU".
func (e Endpoints) Search(format string, page int) string {
	params := url.Values{}
	params.Set("format", format)
	params.Set("page", strconv.Itoa(page))
	return e.ReplayURL + "/search.json?" + params.Encode()
}

// UserSearch returns the URL of a user's replays in a format
func (e Endpoints) UserSearch(user, format string) string {
	params := url.Values{}
	params.Set("user", user)
	params.Set("format", format)
	return e.ReplayURL + "/search.json?" + params.Encode()
}

// Log returns the URL of the raw text log of a replay
func (e Endpoints) Log(id string) string {
	return e.ReplayURL + "/" + url.PathEscape(id) + ".log"
}

// Ladder returns the URL of the ladder for a compact format id
func (e Endpoints) Ladder(compact string) string {
	return e.LadderURL + "/" + url.PathEscape(compact) + ".json"
}
