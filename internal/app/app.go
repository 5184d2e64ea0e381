package app

import (
	"fmt"

	"github.com/go-redis/redis"
	"gorm.io/gorm"

	"github.com/unilert/unilert/internal/config"
	"github.com/unilert/unilert/internal/database"
	"github.com/unilert/unilert/internal/domains/alert"
	"github.com/unilert/unilert/internal/domains/detection"
	detectionrepo "github.com/unilert/unilert/internal/repository/detection"
	"github.com/unilert/unilert/internal/server"
	"github.com/unilert/unilert/internal/storage"
	"github.com/unilert/unilert/pkg/Logger"
	"github.com/unilert/unilert/pkg/classifier"
	"github.com/unilert/unilert/pkg/io/stt"
	"github.com/unilert/unilert/pkg/io/stt/whisper"
)

// App wires the detection pipeline together. DB and RC are optional: without
// them the node runs standalone on its local JSON store.
type App struct {
	Config *config.Settings
	Logger *Logger.Logger
	DB     *gorm.DB
	RC     *redis.Client

	Store      *storage.JSONStore
	Lexicon    *detection.Lexicon
	Engine     *detection.Engine
	History    *detection.History
	Dispatcher *alert.Dispatcher
	ServerDeps server.Dependencies
}

// NewApp creates the application with all dependencies wired.
func NewApp(cfg *config.Settings, logger *Logger.Logger, db *gorm.DB, rc *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		RC:     rc,
	}

	if err := app.setupDependencies(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) setupDependencies() error {
	store, err := storage.NewJSONStore(a.Config.Storage.Dir, a.Logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to set up local store: %w", err)
	}
	a.Store = store

	a.Lexicon = detection.NewLexicon(store, a.Logger.Named("lexicon"))
	a.History = detection.NewHistory(a.Config.Detection.HistoryLimit, store, a.Logger.Named("history"))

	acoustic := classifier.NewAcousticClient(a.Config.Classifier.AudioURL,
		a.Config.Classifier.Timeout, a.Logger.Named("acoustic"))
	text := classifier.NewTextClient(a.Config.Classifier.TextURL,
		a.Config.Classifier.Timeout, a.Logger.Named("text"))
	a.Engine = detection.NewEngine(acoustic, text, a.Config.Detection, store, a.Logger.Named("fusion"))

	var notifier alert.Notifier
	if a.Config.Notifier.URL != "" {
		notifier = alert.NewHTTPNotifier(a.Config.Notifier.URL, a.Config.Notifier.Timeout, a.Logger.Named("notifier"))
	}
	a.Dispatcher = alert.NewDispatcher(notifier, alert.NewLogAlerter(a.Logger), nil, 0, a.Logger.Named("dispatch"))

	var repo detectionrepo.Repository
	if a.DB != nil {
		repo = detectionrepo.NewGormDetectionRepo(a.DB)
	}

	var publisher *database.DetectionPublisher
	if a.RC != nil {
		publisher = database.NewDetectionPublisher(a.RC, a.Config.Redis.DetectionChannel)
	}

	var transcriber stt.Transcriber
	if a.Config.Voice.STTURL != "" {
		transcriber = whisper.New(a.Config.Voice.STTURL, a.Logger.Named("stt"))
	}

	a.ServerDeps = server.NewServerDependencies(
		a.Lexicon,
		a.Engine,
		a.History,
		repo,
		publisher,
		a.Dispatcher,
		transcriber,
		a.Logger,
		a.Config,
	)
	return nil
}

// GetServerDependencies returns the server dependencies.
func (a *App) GetServerDependencies() server.Dependencies {
	return a.ServerDeps
}
