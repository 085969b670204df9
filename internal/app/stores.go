package app

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assignments-api/internal/models"
	"github.com/noah-isme/sma-assignments-api/internal/repository"
	"github.com/noah-isme/sma-assignments-api/pkg/config"
	"github.com/noah-isme/sma-assignments-api/pkg/database"
)

// AssignmentStore is implemented by both assignment repositories.
type AssignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Update(ctx context.Context, id string, changes models.AssignmentChanges) error
	Delete(ctx context.Context, id string) error
	UpsertSubmission(ctx context.Context, assignmentID string, sub *models.Submission) (string, error)
	GradeSubmission(ctx context.Context, assignmentID, submissionID string, grade *float64, feedback *string) error
}

// UserStore is implemented by both user repositories.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// Stores bundles the persistence backend selected by STORE_DRIVER.
type Stores struct {
	Driver      string
	Assignments AssignmentStore
	Users       UserStore

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks the backend connection.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Stores) Close(ctx context.Context) error {
	return s.close(ctx)
}

// OpenStores connects to the configured backend and prepares its schema or indexes.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return openMongo(ctx, cfg, logger)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := database.Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	logger.Info("store ready", zap.String("driver", config.StorePostgres), zap.String("database", cfg.Database.Name))
	return &Stores{
		Driver:      config.StorePostgres,
		Assignments: repository.NewAssignmentRepository(db),
		Users:       repository.NewUserRepository(db),
		ping:        db.PingContext,
		close:       func(context.Context) error { return db.Close() },
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	client, db, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	assignments := repository.NewAssignmentMongoRepository(db)
	users := repository.NewUserMongoRepository(db)

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := assignments.EnsureIndexes(indexCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := users.EnsureIndexes(indexCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info("store ready", zap.String("driver", config.StoreMongo), zap.String("database", cfg.Mongo.Database))
	return &Stores{
		Driver:      config.StoreMongo,
		Assignments: assignments,
		Users:       users,
		ping:        func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		close:       client.Disconnect,
	}, nil
}
