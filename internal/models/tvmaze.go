package models

// Entities returned by the TVMaze catalog. Optional fields are pointers so that
// "absent", "null" and "wrong type" all normalize to nil.

type Image struct {
	Medium   *string `json:"medium,omitempty"`
	Original *string `json:"original,omitempty"`
}

type Rating struct {
	Average *float64 `json:"average"`
}

type Externals struct {
	TVRage  *int64  `json:"tvrage,omitempty"`
	TheTVDB *int64  `json:"thetvdb,omitempty"`
	IMDb    *string `json:"imdb,omitempty"`
}

type Person struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image *Image `json:"image,omitempty"`
}

type Character struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image *Image `json:"image,omitempty"`
}

// CastMember pairs a person with the character they play. Person.ID is the
// key used when iterating a cast list.
type CastMember struct {
	Person    Person    `json:"person"`
	Character Character `json:"character"`
}

type Episode struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Season  int     `json:"season"`
	Number  int     `json:"number"`
	Runtime *int    `json:"runtime,omitempty"`
	Rating  *Rating `json:"rating,omitempty"`
	Image   *Image  `json:"image,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

type Season struct {
	ID           int64   `json:"id"`
	Number       int     `json:"number"`
	EpisodeOrder *int    `json:"episodeOrder,omitempty"`
	PremiereDate *string `json:"premiereDate,omitempty"`
	EndDate      *string `json:"endDate,omitempty"`
	Image        *Image  `json:"image,omitempty"`
	Summary      *string `json:"summary,omitempty"`
}

type Resolution struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageAsset is a gallery image from the images endpoint. Type is a free-form
// tag such as "poster" or "background".
type ImageAsset struct {
	ID          int64                 `json:"id"`
	Type        string                `json:"type"`
	Main        *bool                 `json:"main,omitempty"`
	Resolutions map[string]Resolution `json:"resolutions"`
}

// Embedded is the bundle of sub-resources present only on detail fetches.
type Embedded struct {
	Seasons  []Season     `json:"seasons"`
	Cast     []CastMember `json:"cast"`
	Episodes []Episode    `json:"episodes"`
	Images   []ImageAsset `json:"images"`
}

type Show struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Genres    []string   `json:"genres"`
	Language  *string    `json:"language,omitempty"`
	Premiered *string    `json:"premiered,omitempty"`
	Ended     *string    `json:"ended,omitempty"`
	Rating    *Rating    `json:"rating,omitempty"`
	Image     *Image     `json:"image,omitempty"`
	Summary   *string    `json:"summary,omitempty"`
	Externals *Externals `json:"externals,omitempty"`
	Embedded  *Embedded  `json:"_embedded,omitempty"`
}

// WithoutEmbedded returns a copy of the show with the embedded bundle removed.
func (s Show) WithoutEmbedded() Show {
	s.Embedded = nil
	return s
}

type SearchResult struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`
}
