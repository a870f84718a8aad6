package lastfm

// Tag is a Last.fm tag. Count is the tag's weight for the artist, 0 to 100.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
	URL   string `json:"url"`
}

// artistTagsResponse is the JSON response for artist.getTopTags.
type artistTagsResponse struct {
	TopTags struct {
		Tag  []Tag `json:"tag"`
		Attr struct {
			Artist string `json:"artist"`
		} `json:"@attr"`
	} `json:"toptags"`
}

type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
