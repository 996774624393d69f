package http

import (
	"encoding/json"
	"net/http"
)

// PaginatedResponse wraps paginated data with metadata
type PaginatedResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationMetadata `json:"pagination"`
}

// PaginationMetadata contains pagination information
type PaginationMetadata struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// ListResponse wraps a list of items (non-paginated)
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header is already sent, so an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteCreated writes a created response
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a no content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WritePaginatedSimple writes a paginated response without a total count.
// Callers fetch limit+1 rows; the extra row only signals that more exist.
func WritePaginatedSimple[T any](w http.ResponseWriter, data []T, limit, offset int) {
	hasMore := len(data) > limit

	responseItems := data
	if hasMore {
		responseItems = data[:limit]
	}

	response := PaginatedResponse[T]{
		Data: responseItems,
		Pagination: PaginationMetadata{
			Limit:   limit,
			Offset:  offset,
			HasMore: hasMore,
		},
	}

	WriteJSON(w, http.StatusOK, response)
}

// WriteList writes a simple list response
func WriteList[T any](w http.ResponseWriter, data []T) {
	response := ListResponse[T]{
		Data:  data,
		Count: len(data),
	}

	WriteJSON(w, http.StatusOK, response)
}
