package lyrics

// Lyrics is a provider match with the provider's canonical names.
type Lyrics struct {
	Title  string
	Artist string
	URL    string
	Text   string
}

// searchResponse is the JSON response for GET /search.
type searchResponse struct {
	Meta struct {
		Status  int    `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"meta"`
	Response struct {
		Hits []searchHit `json:"hits"`
	} `json:"response"`
}

type searchHit struct {
	Type   string    `json:"type"`
	Result songMatch `json:"result"`
}

type songMatch struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PrimaryArtist struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}
