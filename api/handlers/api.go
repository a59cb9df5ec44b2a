package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/turingroom/turing-room-api/api"
	"github.com/turingroom/turing-room-api/api/scheduler"
	"github.com/turingroom/turing-room-api/broker"
	"github.com/turingroom/turing-room-api/config"
	"github.com/turingroom/turing-room-api/databases"
	"github.com/turingroom/turing-room-api/games"
	"github.com/turingroom/turing-room-api/llm"
	"github.com/turingroom/turing-room-api/matchmaker"
	"github.com/turingroom/turing-room-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	DB       databases.CollectionHelper
	Config   config.Config
	dbHelper databases.DatabaseHelper

	Broker     broker.Broker
	Games      *games.Service
	Matchmaker *matchmaker.Matchmaker

	scheduler      *scheduler.Scheduler
	stopMatchmaker context.CancelFunc
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper), JWTSecret: a.Config.JWTSecret}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	u := User{DB: databases.NewUserDatabase(a.dbHelper), GDB: databases.NewGameDatabase(a.dbHelper)}
	g := Game{DB: databases.NewGameDatabase(a.dbHelper), MDB: databases.NewMessageDatabase(a.dbHelper), Judge: a.Games}
	match := Match{Matchmaker: a.Matchmaker, UDB: databases.NewUserDatabase(a.dbHelper), JWTSecret: a.Config.JWTSecret}
	room := Room{
		Broker:    a.Broker,
		GDB:       databases.NewGameDatabase(a.dbHelper),
		MDB:       databases.NewMessageDatabase(a.dbHelper),
		Judge:     a.Games,
		Completer: llm.NewClient(a.Config.LLMBaseURL, a.Config.LLMModel, a.Config.LLMAPIKey),
		Persona:   llm.DefaultPersona,
		JWTSecret: a.Config.JWTSecret,
	}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	r.HandleFunc("/ws/match", match.Serve)
	r.HandleFunc("/ws/rooms/{game_id}/{role}", room.Serve)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/user/register", http.HandlerFunc(u.RegisterHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UpdateUserHandler))).Methods("PUT")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.DeleteUserHandler))).Methods("DELETE")
	apiCreate.Handle("/user/{user_id}/games", api.Middleware(http.HandlerFunc(u.UserGamesHandler))).Methods("GET")
	apiCreate.Handle("/users", api.Middleware(http.HandlerFunc(u.UsersFindAllHandler))).Methods("GET")

	apiCreate.Handle("/rooms/{game_id}", api.Middleware(http.HandlerFunc(g.GameHandler))).Methods("GET")
	apiCreate.Handle("/rooms/{game_id}/guess", api.Middleware(http.HandlerFunc(g.GuessHandler))).Methods("POST")
	apiCreate.Handle("/rooms/{game_id}/messages", api.Middleware(http.HandlerFunc(g.MessagesHandler))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("turing-room-api has connected to the database")

	if a.Broker == nil {
		if a.Config.RedisURL != "" {
			a.Broker = broker.NewRedis(a.Config.RedisURL)
		} else {
			zap.S().Warn("REDIS_URL not set, relaying through the in-process broker")
			a.Broker = broker.NewMemory()
		}
	}

	a.Games = games.NewService(
		databases.NewGameDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
		databases.NewGuessDatabase(a.dbHelper),
		a.Broker,
		a.Config.ChatDuration,
	)
	a.Matchmaker = matchmaker.New(a.Games, a.Config.ConfirmWindow, a.Config.QueueMode)
	a.Games.Releaser = a.Matchmaker

	ctx, cancel := context.WithCancel(context.Background())
	a.stopMatchmaker = cancel
	go a.Matchmaker.Run(ctx)

	a.scheduler = scheduler.New(a.Games)
	a.scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

// Shutdown stops the background loops started by Initialize
func (a *App) Shutdown() {
	if a.stopMatchmaker != nil {
		a.stopMatchmaker()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
