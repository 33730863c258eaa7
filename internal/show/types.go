// internal/show/types.go
//
// Show metadata as served by the TVMaze API.
// Defines:
//   - Episode: one installment (id, season/number ordering, air date, summary).
//   - CastMember: a performer paired with the character they play.
//
// Field names and JSON tags follow the TVMaze wire format so the same types
// are decoded by the tvmaze client and served back by the HTTP layer.

package show

// Episode is a single installment of the show.
// Summary may contain HTML markup; use StripMarkup before presenting it.
type Episode struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Season  int    `json:"season"`
	Number  int    `json:"number"`
	Airdate string `json:"airdate"` // YYYY-MM-DD
	Runtime int    `json:"runtime,omitempty"`
	Summary string `json:"summary"`
	URL     string `json:"url,omitempty"`
}

// CastMember pairs a real performer with the character they portray.
type CastMember struct {
	Person    Person    `json:"person"`
	Character Character `json:"character"`
}

// Person is the performer side of a cast entry. Optional fields are nil/empty
// when TVMaze has no data.
type Person struct {
	ID       int      `json:"id,omitempty"`
	Name     string   `json:"name"`
	Birthday string   `json:"birthday,omitempty"`
	Country  *Country `json:"country,omitempty"`
	Image    *Image   `json:"image,omitempty"`
}

type Character struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

type Country struct {
	Name     string `json:"name"`
	Code     string `json:"code,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type Image struct {
	Medium   string `json:"medium,omitempty"`
	Original string `json:"original,omitempty"`
}
