package reddit

import (
	"strconv"
	"strings"
	"time"
)

// Thing kinds in listing responses.
const (
	KindPost    = "t3"
	KindComment = "t1"
)

type (
	// Listing is one page of a cursor-paginated listing endpoint.
	Listing struct {
		Data struct {
			After    string  `json:"after"`
			Children []Thing `json:"children"`
		} `json:"data"`
	}

	Thing struct {
		Kind string    `json:"kind"`
		Data ThingData `json:"data"`
	}

	ThingData struct {
		ID        string `json:"id"`
		Name      string `json:"name"` // fullname, e.g. t3_abc123
		Subreddit string `json:"subreddit"`
		Author    string `json:"author"`
		Permalink string `json:"permalink"`
		Score     Number `json:"score"`
		Created   Number `json:"created_utc"`

		// Posts
		Title       string `json:"title"`
		URL         string `json:"url"`
		Selftext    string `json:"selftext"`
		IsSelf      *bool  `json:"is_self"`
		NumComments Number `json:"num_comments"`

		// Comments
		Body      string `json:"body"`
		LinkTitle string `json:"link_title"`
	}

	// Identity is the response from the /api/v1/me endpoint.
	Identity struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

// Number tolerates the type drift in Reddit's numeric fields: the same
// field can come back as a number, a quoted number, a float, or be missing
// entirely. Decoding never fails on a variant; garbage reads as absent.
type Number struct {
	val float64
	ok  bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	n.val = f
	n.ok = true
	return nil
}

// Int truncates to an integer, 0 when the field was absent.
func (n Number) Int() int {
	return int(n.val)
}

// IntPtr truncates to an integer, nil when the field was absent.
func (n Number) IntPtr() *int {
	if !n.ok {
		return nil
	}

	v := int(n.val)
	return &v
}

// Time interprets the value as epoch seconds in UTC.
func (n Number) Time() time.Time {
	return time.Unix(int64(n.val), 0).UTC()
}
