package web

import (
	"log/slog"
	"net/http"
)

type indexPage struct {
	Title         string
	Subjects      []string
	RefreshMillis int64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.reader.Recent(r.Context(), s.limit)
	if err != nil {
		slog.Error("Failed to load recent subjects", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "index", indexPage{
		Title:         "Mail Watcher",
		Subjects:      subjects,
		RefreshMillis: s.refresh.Milliseconds(),
	})
}
