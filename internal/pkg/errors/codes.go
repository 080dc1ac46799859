package errors

import "net/http"

var (
	ErrMapFileNotFound = New(
		"MAP_FILE_NOT_FOUND",
		"Map file not found",
		http.StatusNotFound,
	)

	ErrInvalidMapPath = New(
		"INVALID_MAP_PATH",
		"Invalid map file path",
		http.StatusBadRequest,
	)

	ErrInvalidRunID = New(
		"INVALID_RUN_ID",
		"Invalid run ID",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)

var (
	ErrRunNotFound = New(
		"RUN_NOT_FOUND",
		"No pipeline run recorded yet",
		http.StatusNotFound,
	)

	ErrServiceUnavailable = New(
		"SERVICE_UNAVAILABLE",
		"Backing store is not configured",
		http.StatusServiceUnavailable,
	)
)
