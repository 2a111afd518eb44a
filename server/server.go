// Package server provides a small read-only HTTP status interface over the
// outcome database, so staff can check on past batch runs without access to
// the processing machine.
package server

import (
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net/http"

	"github.com/facebookgo/httpdown"
	"github.com/julienschmidt/httprouter"

	"github.com/uga-libraries/aip-aptrust/report"
)

// Version is the version of this build. It is set by the linker.
var Version = "devel"

// StatusServer holds the configuration for the status interface.
//
// Set the public fields and then call Run. Run listens on the given port and
// handles requests until Stop is called. Do not change any fields after
// calling Run.
type StatusServer struct {
	// Port number to listen on. Defaults to 14500.
	PortNumber string

	// Store is the outcome database to serve. Run will panic if it is nil.
	Store report.Store

	server httpdown.Server // used to close our listening socket
}

// Run starts the server. It blocks listening for and handling http requests.
func (s *StatusServer) Run() error {
	if s.Store == nil {
		panic("No outcome store given. Store is nil.")
	}
	if s.PortNumber == "" {
		s.PortNumber = "14500"
	}
	log.Println("Listening on", s.PortNumber)

	h := httpdown.HTTP{}
	var err error
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: s.addRoutes(),
	})
	if err != nil {
		log.Println(err)
		return err
	}
	return s.server.Wait()
}

// Stop will stop the server and return when all the server goroutines have
// exited and the socket closed.
func (s *StatusServer) Stop() error {
	return s.server.Stop()
}

func (s *StatusServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		handler httprouter.Handle
	}{
		{"GET", "/", WelcomeHandler},
		{"GET", "/outcomes", s.OutcomesHandler},
		{"GET", "/outcomes/:batch", s.OutcomesHandler},
		{"GET", "/renames/:package", s.RenamesHandler},
		{"GET", "/debug/vars", VarHandler}, // standard route for expvars data
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method, route.route, logWrapper(route.handler))
	}
	return r
}

// WelcomeHandler identifies the service and its version.
func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "AIP-to-APTrust conversion (%s)\n", Version)
}

// OutcomesHandler returns the outcome rows for one batch, or every row when
// no batch is given, as JSON.
func (s *StatusServer) OutcomesHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rows, err := s.Store.Outcomes(ps.ByName("batch"))
	writeJSON(w, rows, err)
}

// RenamesHandler returns the rename log rows for one package as JSON.
func (s *StatusServer) RenamesHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rows, err := s.Store.Renames(ps.ByName("package"))
	writeJSON(w, rows, err)
}

func writeJSON(w http.ResponseWriter, val interface{}, err error) {
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(val)
}

// VarHandler adapts the expvar default handler to the httprouter three parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// this code is taken from the stdlib expvar package.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(w, "\n}\n")
}

// logWrapper takes a handler and returns a handler which does the same thing,
// after first logging the request URL.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Println(r.Method, r.URL)
		handler(w, r, ps)
	}
}
