// Package thttp runs the operational HTTP endpoints of the geyser plugin.
//
// thttp.Server is controlled with the context passed to its Run method and
// performs graceful shutdown when the context closes. Every request context
// inherits from that context, so tlog.Get(r.Context()) returns a logger with
// the httpServer and remoteAddr fields already set.
//
// Routing is left to github.com/gorilla/mux, with Log installed on the router
// so that it sees the matched route:
//
//	router := mux.NewRouter()
//	router.Use(thttp.Log)
//	router.Handle("/metrics", collector.Handler()).Name("metrics")
//	router.HandleFunc("/status", statusHandler).Methods(http.MethodGet).Name("status")
//
//	server := thttp.NewServer(listener, thttp.Wrap(router, thttp.Recover(onPanic), thttp.CORS))
//	spawn("http", parallel.Fail, server.Run)
//
// A panicking handler answers 500 and the server keeps serving.
package thttp
