package httpserver

// Response types for JSON serialization.

type rootResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// noResultsMessage is returned with 404 when a search yields no rows.
const noResultsMessage = "No results found for given subjects."
