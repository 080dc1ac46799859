package diagnostics

import (
	"context"
	"errors"
	"io/fs"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/topology"
)

// FromError переводит ошибку задания в запись диагностики
func FromError(jobID, file string, err error) *domain.Diagnostic {
	var gerr *topology.GeometryError
	var perr *fs.PathError
	switch {
	case errors.As(err, &gerr):
		if gerr.File != "" {
			file = gerr.File
		}
		d := domain.NewDiagnostic(jobID, domain.DiagnosticGeometry, file, err.Error())
		d.Coordinates = gerr.Coordinates()
		return d
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewDiagnostic(jobID, domain.DiagnosticTimeout, file, err.Error())
	case errors.As(err, &perr):
		if file == "" {
			file = perr.Path
		}
		return domain.NewDiagnostic(jobID, domain.DiagnosticFilesystem, file, err.Error())
	default:
		return domain.NewDiagnostic(jobID, domain.DiagnosticJobFailed, file, err.Error())
	}
}
