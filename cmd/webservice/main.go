package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/amir013/opf/internal/pkg/webservice"
)

func main() {
	var (
		resultsDir = flag.String("results", ".", "directory of exported result files")
		port       = flag.String("port", ":8080", "listen address")
	)
	flag.Parse()

	app := webservice.New()
	if err := app.LoadFromDir(*resultsDir); err != nil {
		log.Fatal("[Webservice] ", err)
	}

	r := app.Router()
	http.Handle("/", r)

	log.Println("[Webservice] Starting Server on Port", *port)
	if err := http.ListenAndServe(*port, r); err != nil {
		log.Fatal("[Webservice] ", err)
	}
}
