package api

import (
	"net/http"

	"github.com/dgallion1/docsplit/internal/outline"
)

type familyInfo struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	HeadingTypes outline.TypeList `json:"heading_types"`
	HasFooter    bool             `json:"has_footer"`
	MaxPages     int              `json:"max_pages"`
}

func (s *Server) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	reg := s.orchestrator.Families()
	out := []familyInfo{}
	for _, name := range reg.Names() {
		f, ok := reg.Get(name)
		if !ok {
			continue
		}
		out = append(out, familyInfo{
			Name:         f.Name,
			Description:  f.Description,
			HeadingTypes: f.Types,
			HasFooter:    f.Footer != nil,
			MaxPages:     f.MaxPages,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"families": out})
}
