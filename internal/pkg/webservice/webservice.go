// Package webservice exposes the latest solve results over HTTP.
package webservice

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/amir013/opf/internal/pkg/msg"
	"github.com/amir013/opf/internal/pkg/report"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App holds the latest result document per model type and serves them.
type App struct {
	mux    *sync.Mutex
	latest map[string]report.Document
}

// New returns an empty App.
func New() *App {
	return &App{
		mux:    &sync.Mutex{},
		latest: make(map[string]report.Document),
	}
}

// Router wires the HTTP routes.
func (app *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", app.BaseHandler)
	r.HandleFunc("/results/{model}", app.ResultHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Watch subscribes to a publisher's result stream and keeps the served
// documents current. Runs until the publisher closes the channel.
func (app *App) Watch(system msg.Publisher) error {
	pid, err := uuid.NewUUID()
	if err != nil {
		return err
	}
	ch, err := system.Subscribe(pid, msg.Result)
	if err != nil {
		return err
	}
	go func() {
		for m := range ch {
			doc, ok := m.Payload().(report.Document)
			if !ok {
				continue
			}
			app.Put(doc)
		}
	}()
	return nil
}

// LoadFromDir seeds the served documents from previously exported
// result files.
func (app *App) LoadFromDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*_results.json"))
	if err != nil {
		return err
	}
	for _, path := range paths {
		doc, err := report.ReadFile(path)
		if err != nil {
			log.Println("[Webservice] skipping", path, ":", err)
			continue
		}
		app.Put(doc)
	}
	return nil
}

// Put stores a document as the latest for its model type.
func (app *App) Put(doc report.Document) {
	app.mux.Lock()
	defer app.mux.Unlock()
	app.latest[doc.ModelType] = doc
}

// BaseHandler answers liveness probes.
func (app *App) BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

// ResultHandler serves the latest document for a model type. The
// {model} segment accepts "AC_OPF" or "DC_OPF" in any case.
func (app *App) ResultHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	model := strings.ToUpper(vars["model"])

	app.mux.Lock()
	doc, ok := app.latest[model]
	app.mux.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		log.Println("[Webservice] malformed document:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
