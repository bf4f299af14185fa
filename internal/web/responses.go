package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/justestif/moodmatch/internal/clustering"
	"github.com/justestif/moodmatch/internal/search"
	"github.com/justestif/moodmatch/internal/similarity"
)

type searchRequest struct {
	SongName   string `json:"song_name"`
	ArtistName string `json:"artist_name"`
}

type classifyRequest struct {
	Lyrics string `json:"lyrics"`
}

type searchResponse struct {
	SimilarSongs rankedSongs `json:"similar_songs"`
	Mood         string      `json:"mood"`
	Song         string      `json:"Song"`
	Artist       string      `json:"Artist"`
}

func newSearchResponse(result *search.Result) searchResponse {
	return searchResponse{
		SimilarSongs: result.Similar,
		Mood:         result.Mood,
		Song:         result.Song,
		Artist:       result.Artist,
	}
}

// rankedSongs encodes as an object keyed similar_song_1..N in rank order.
type rankedSongs []similarity.Match

func (r rankedSongs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `"similar_song_%d":`, i+1)
		value, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type classifyResponse struct {
	Mood         string `json:"mood"`
	Preprocessed string `json:"preprocessed"`
}

type moodsResponse struct {
	Moods map[string]int `json:"moods"`
}

type songRef struct {
	Song   string `json:"Song"`
	Artist string `json:"Artist"`
}

type themeResponse struct {
	Name  string    `json:"name"`
	Terms []string  `json:"terms"`
	Songs []songRef `json:"songs"`
}

type themesResponse struct {
	Mood     string          `json:"mood"`
	Themes   []themeResponse `json:"themes"`
	Outliers []songRef       `json:"outliers"`
}

func newThemesResponse(result *search.ThemeResult) themesResponse {
	resp := themesResponse{
		Mood:     result.Mood,
		Themes:   make([]themeResponse, len(result.Themes)),
		Outliers: songRefs(result.Outliers),
	}
	for i, theme := range result.Themes {
		resp.Themes[i] = themeResponse{
			Name:  theme.Name,
			Terms: theme.Terms,
			Songs: songRefs(theme.Songs),
		}
	}
	return resp
}

func songRefs(songs []clustering.Song) []songRef {
	refs := make([]songRef, len(songs))
	for i, s := range songs {
		refs[i] = songRef{Song: s.Song, Artist: s.Artist}
	}
	return refs
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
