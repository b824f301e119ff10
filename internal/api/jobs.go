package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/jobsh/internal/api/models"
)

func (s *Server) registerJobRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/jobs",
		Summary:     "List Jobs",
		Description: "List every registered job, newest first",
		Tags:        []string{"jobs"},
	}, func(_ context.Context, _ *struct{}) (*models.JobListResponse, error) {
		list := s.jobs.Jobs()
		return &models.JobListResponse{
			Body: models.JobListData{
				Jobs:  list,
				Count: len(list),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{pid}",
		Summary:     "Get Job",
		Description: "Get one registered job by process id",
		Tags:        []string{"jobs"},
		Errors:      []int{404},
	}, func(_ context.Context, input *models.JobRequest) (*models.JobResponse, error) {
		rec, ok := s.jobs.Lookup(input.PID)
		if !ok {
			return nil, huma.Error404NotFound("no job with that pid")
		}
		return &models.JobResponse{Body: rec.Info()}, nil
	})
}
