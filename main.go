package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/turingroom/turing-room-api/api/handlers"

	"go.uber.org/zap"

	"github.com/turingroom/turing-room-api/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	if err := a.Initialize(); err != nil { //initialize database, services and router
		log.Fatal(err)
	}
	defer a.Shutdown()

	port := os.Getenv("PORT")
	baseURL := os.Getenv("BASE_URL")
	zap.S().Infow("turing-room-api is up and running",
		"port", port,
		"url", baseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), a.Router))
}
