package thttp

import (
	"net/http"

	"github.com/gorilla/handlers"
)

var (
	allowedMethods = []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodOptions,
	}
	allowedHeaders = []string{
		"Accept",
		"Accept-Encoding",
		"Cache-Control",
		"If-Modified-Since",
	}
	exposedHeaders = []string{
		"Content-Encoding",
		"Content-Length",
	}
)

// CORS is a middleware that allows read-only cross-origin requests, so that
// dashboards can poll the operational endpoints directly
var CORS = handlers.CORS(
	handlers.AllowedMethods(allowedMethods),
	handlers.AllowedHeaders(allowedHeaders),
	handlers.ExposedHeaders(exposedHeaders),
	handlers.AllowedOrigins([]string{"*"}),
)
