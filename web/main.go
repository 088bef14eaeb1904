package main

import (
	"flag"
	"log"
	"os"

	"github.com/Ameobea/go-volumetric-fog/web/server"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	flag.Parse()

	webServer, err := server.NewServer(*port)
	if err != nil {
		log.Printf("Error creating server: %v", err)
		os.Exit(1)
	}

	log.Printf("Volumetric Fog Render Server")
	log.Printf("Render via http://localhost:%d/api/render?scene=basin", *port)

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
