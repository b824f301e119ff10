package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/jobsh/internal/api/models"
	"github.com/smazurov/jobsh/internal/logging"
)

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "query-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Query Logs",
		Description: "Return recent entries from the in-memory log buffer",
		Tags:        []string{"logs"},
	}, func(_ context.Context, input *models.LogQuery) (*models.LogResponse, error) {
		entries := s.logs.Query(input.Module, input.Level, input.Limit)
		if entries == nil {
			entries = []logging.LogEntry{}
		}
		return &models.LogResponse{
			Body: models.LogData{
				Entries: entries,
				Count:   len(entries),
			},
		}, nil
	})
}
