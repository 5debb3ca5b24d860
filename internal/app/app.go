package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/templui/filesmanager/internal/config"
	"github.com/templui/filesmanager/internal/db"
	"github.com/templui/filesmanager/internal/queue"
	"github.com/templui/filesmanager/internal/repository"
	"github.com/templui/filesmanager/internal/service"
	"github.com/templui/filesmanager/internal/session"
	"github.com/templui/filesmanager/internal/storage"
	"github.com/templui/filesmanager/internal/worker"
)

type App struct {
	Cfg      *config.Config
	DB       *sqlx.DB
	Mongo    *mongo.Client
	Sessions session.Store
	Queue    queue.Queue
	Storage  storage.Storage

	UserRepository repository.UserRepository
	FileRepository repository.FileRepository

	AuthService   *service.AuthService
	UserService   *service.UserService
	FileService   *service.FileService
	StatusService *service.StatusService
	Processor     *worker.ThumbnailProcessor
}

// New builds everything the API server needs.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a, err := newBase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.New(cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize sessions: %v", err)
	}
	a.Sessions = sessions

	a.AuthService = service.NewAuthService(a.UserRepository, sessions)
	a.UserService = service.NewUserService(a.UserRepository, a.AuthService)
	a.StatusService = service.NewStatusService(sessions.Alive, a.dbAlive, a.UserRepository, a.FileRepository)

	return a, nil
}

// NewWorker builds the thumbnail worker side: metadata, blobs and the queue,
// without sessions.
func NewWorker(ctx context.Context, cfg *config.Config) (*App, error) {
	return newBase(ctx, cfg)
}

func newBase(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	// Metadata store
	if cfg.UsesSQL() {
		database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %v", err)
		}
		a.DB = database

		err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to run migrations: %v", err)
		}

		a.UserRepository = repository.NewUserRepository(database)
		a.FileRepository = repository.NewFileRepository(database)
	} else {
		client, mdb, err := db.InitMongo(ctx, cfg.DBConnection, cfg.DBDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %v", err)
		}
		a.Mongo = client

		a.UserRepository = repository.NewMongoUserRepository(mdb)
		a.FileRepository = repository.NewMongoFileRepository(mdb)
	}

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}
	a.Storage = fileStorage

	// Queue
	q, err := queue.New(cfg, a.DB)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize queue: %v", err)
	}
	a.Queue = q

	a.FileService = service.NewFileService(a.FileRepository, fileStorage, q, cfg.MaxUploadBytes)
	a.Processor = worker.NewThumbnailProcessor(a.FileRepository, fileStorage)

	return a, nil
}

func (a *App) dbAlive(ctx context.Context) bool {
	if a.DB != nil {
		return db.Alive(ctx, a.DB)
	}
	if a.Mongo != nil {
		return db.MongoAlive(ctx, a.Mongo)
	}
	return false
}

func (a *App) Close() error {
	var errs []error

	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close())
	}
	if a.Mongo != nil {
		errs = append(errs, a.Mongo.Disconnect(context.Background()))
	}
	if a.DB != nil {
		errs = append(errs, db.Close(a.DB))
	}

	return errors.Join(errs...)
}
