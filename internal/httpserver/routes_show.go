package httpserver

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/showtrivia/internal/show"
)

const (
	noSummary        = "No summary available."
	notAvailable     = "N/A"
	placeholderImage = "https://via.placeholder.com/150"
)

type episodeCard struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Season  int    `json:"season"`
	Number  int    `json:"number"`
	Airdate string `json:"airdate"`
	Summary string `json:"summary"`
}

type castCard struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Image     string `json:"image"`
	Birthday  string `json:"birthday"`
	Country   string `json:"country"`
}

func (s *Server) mountShowRoutes() {
	s.r.Get("/episodes", s.handleEpisodes)
	s.r.Get("/cast", s.handleCast)
}

// handleEpisodes lists episodes, optionally filtered by ?q= against name
// and summary.
func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog.Load(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load catalog")
		writeError(w, http.StatusServiceUnavailable, loadErrorText)
		return
	}

	eps := show.FilterEpisodes(cat.Episodes, r.URL.Query().Get("q"))
	out := make([]episodeCard, 0, len(eps))
	for _, e := range eps {
		summary := show.StripMarkup(e.Summary)
		if summary == "" {
			summary = noSummary
		}
		out = append(out, episodeCard{
			ID:      e.ID,
			Name:    e.Name,
			Season:  e.Season,
			Number:  e.Number,
			Airdate: e.Airdate,
			Summary: summary,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog.Load(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load catalog")
		writeError(w, http.StatusServiceUnavailable, loadErrorText)
		return
	}

	out := make([]castCard, 0, len(cat.Cast))
	for _, m := range cat.Cast {
		c := castCard{
			Name:      m.Person.Name,
			Character: m.Character.Name,
			Image:     placeholderImage,
			Birthday:  notAvailable,
			Country:   notAvailable,
		}
		if img := m.Person.Image; img != nil && img.Medium != "" {
			c.Image = img.Medium
		}
		if m.Person.Birthday != "" {
			c.Birthday = m.Person.Birthday
		}
		if m.Person.Country != nil && m.Person.Country.Name != "" {
			c.Country = m.Person.Country.Name
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, out)
}
