package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/memstore"
	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/internal/repositories/pgstore"
	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/locking"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/resolution"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/scanning"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/suggestions"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type appOptions struct {
	migrate bool
	external bool
}

// app owns the external connections of one process
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup
	checker *health.Checker

	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	graph    *graph.Client
}

func newApp(cfg *config.Config, logger ectologger.Logger, opts appOptions) *app {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		checker: health.NewChecker(cfg.Version),
	}

	if cfg.TracingEnabled && opts.external {
		var shutdown func(context.Context) error
		a.startup.AddDependency(&startup.Dependency{
			Name: "tracing",
			OnStart: func(ctx context.Context) error {
				var err error
				shutdown, err = tracing.Init(ctx, tracing.Config{
					ServiceName: cfg.AppName,
					Endpoint:    cfg.TracingEndpoint,
					Protocol:    cfg.TracingProtocol,
					Insecure:    cfg.TracingInsecure,
					Timeout:     5 * time.Second,
				})
				return err
			},
			OnStop: func(ctx context.Context) error {
				if shutdown == nil {
					return nil
				}
				return shutdown(ctx)
			},
		})
	}

	if cfg.StorageDriver == config.StorageDriverPostgres {
		a.startup.AddDependency(&startup.Dependency{
			Name: "database",
			OnStart: func(ctx context.Context) error {
				db, err := database.Connect(ctx, database.Config{
					Host:            cfg.DatabaseHost,
					Port:            cfg.DatabasePort,
					User:            cfg.DatabaseUserName,
					Password:        cfg.DatabasePassword,
					Name:            cfg.DatabaseName,
					SSLMode:         cfg.DatabaseSSLMode,
					MaxOpenConns:    cfg.DatabaseMaxOpenConns,
					MaxIdleConns:    cfg.DatabaseMaxIdleConns,
					ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
				}, logger)
				if err != nil {
					return err
				}
				a.db = db
				return nil
			},
			OnStop: func(context.Context) error {
				if a.db == nil {
					return nil
				}
				return a.db.Close()
			},
		})
		a.checker.AddCheck("database", func(ctx context.Context) error {
			if a.db == nil {
				return fmt.Errorf("database not connected")
			}
			return a.db.PingContext(ctx)
		})

		if opts.migrate {
			a.startup.AddDependency(&startup.Dependency{
				Name:     "migrations",
				Requires: []string{"database"},
				OnStart: func(context.Context) error {
					migrations := database.NewMigrationService(logger, &database.MigrationConfig{
						MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
					})
					return migrations.MigratePostgres(a.db.SQL(), cfg.DatabaseName)
				},
			})
		}
	}

	if !opts.external {
		return a
	}

	if cfg.LockDriver == config.LockDriverRedis {
		a.startup.AddDependency(&startup.Dependency{
			Name: "redis",
			OnStart: func(ctx context.Context) error {
				rdb, err := locking.NewRedisClient(ctx, locking.RedisConfig{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				a.redis = rdb
				return nil
			},
			OnStop: func(context.Context) error {
				if a.redis == nil {
					return nil
				}
				return a.redis.Close()
			},
		})
		a.checker.AddCheck("redis", func(ctx context.Context) error {
			if a.redis == nil {
				return fmt.Errorf("redis not connected")
			}
			return a.redis.Ping(ctx).Err()
		})
	}

	if cfg.KafkaEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "kafka",
			OnStart: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: cfg.KafkaBatchTimeout,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			OnStop: func(context.Context) error {
				if a.producer == nil {
					return nil
				}
				return a.producer.Close()
			},
		})
	}

	if cfg.GraphEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "graph",
			OnStart: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return err
				}
				a.graph = client
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if a.graph == nil {
					return nil
				}
				return a.graph.Close(ctx)
			},
		})
		a.checker.AddCheck("graph", func(ctx context.Context) error {
			if a.graph == nil {
				return fmt.Errorf("graph not connected")
			}
			return a.graph.VerifyConnectivity(ctx)
		})
	}

	return a
}

func (a *app) start(ctx context.Context) error {
	return a.startup.Start(ctx)
}

func (a *app) stop(ctx context.Context) error {
	return a.startup.Stop(ctx)
}

func (a *app) stores() repositories.Stores {
	if a.cfg.StorageDriver == config.StorageDriverMemory {
		a.logger.Warn("Using in-memory storage; data is lost on restart")
		return memstore.New().Stores()
	}
	return pgstore.NewStores(a.db, a.logger)
}

func (a *app) locker() locking.Locker {
	if a.redis != nil {
		return locking.NewRedisLocker(a.redis, a.logger, a.cfg.AppName+":lock:", a.cfg.LockTTL, a.cfg.LockTimeout)
	}
	return locking.NewKeyedMutex()
}

// service wires the resolution components over the started connections
func (a *app) service() (*resolution.Service, error) {
	thresholds, err := matching.LoadThresholds(a.cfg.MatchThresholdsPath)
	if err != nil {
		return nil, err
	}

	stores := a.stores()
	recorder := audit.NewRecorder(stores.Audit, a.logger)

	metricsObserver := metrics.NewObserver()
	mergeObservers := []merging.MergeObserver{metricsObserver}
	reviewObservers := []suggestions.ReviewObserver{metricsObserver}
	if a.producer != nil {
		emitter := events.NewEmitter(a.producer, a.logger)
		mergeObservers = append(mergeObservers, emitter)
		reviewObservers = append(reviewObservers, emitter)
	}
	if a.graph != nil {
		projector := graph.NewLineageProjector(a.graph, a.logger)
		mergeObservers = append(mergeObservers, projector)
		reviewObservers = append(reviewObservers, projector)
	}

	scanner := scanning.NewScanner(stores, matching.NewMatcher(thresholds), scanning.Config{
		MaxClusters: a.cfg.ScanMaxClusters,
		MaxTargeted: a.cfg.ScanMaxTargeted,
	}, a.logger)

	engine := merging.NewEngine(stores, recorder, a.locker(), merging.Config{
		AbortOnPartialFailure: a.cfg.MergeAbortOnPartialFailure,
	}, a.logger, mergeObservers...)

	suggestionService := suggestions.NewService(stores, recorder, suggestions.Config{
		BulkLimit: a.cfg.SuggestionBulkLimit,
	}, a.logger, reviewObservers...)

	return resolution.NewService(
		stores,
		scanner,
		scanning.NewJobRunner(scanner, stores.ScanJobs, a.logger),
		engine,
		suggestionService,
		recorder,
		a.logger,
	), nil
}
