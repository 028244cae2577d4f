package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/accounts"
	"github.com/safar/shop-api/internal/api"
	"github.com/safar/shop-api/internal/auth"
	"github.com/safar/shop-api/internal/catalog"
	"github.com/safar/shop-api/internal/config"
	"github.com/safar/shop-api/internal/database"
	"github.com/safar/shop-api/internal/graph"
	"github.com/safar/shop-api/internal/logger"
	"github.com/safar/shop-api/internal/media"
	"github.com/safar/shop-api/internal/orders"
	"github.com/safar/shop-api/internal/realtime"
	"github.com/safar/shop-api/internal/store"
	"github.com/safar/shop-api/internal/store/memstore"
	"github.com/safar/shop-api/internal/store/mongostore"
	"github.com/safar/shop-api/internal/store/pgstore"
	"github.com/safar/shop-api/migrations"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Load config: %v", err)
	}

	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Open %s store: %v", cfg.Store.Driver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.WithError(err).Warn("close store")
		}
	}()
	log.WithField("driver", cfg.Store.Driver).Info("Connected to store successfully")

	tokens := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	accts := accounts.NewService(st, auth.NewHasher(cfg.Auth.BcryptCost), tokens, log)
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if _, err := accts.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			log.Fatalf("Seed admin account: %v", err)
		}
	}

	var uploader media.Uploader
	if cfg.Media.CloudinaryURL != "" {
		cld, err := media.NewCloudinary(cfg.Media.CloudinaryURL, cfg.Media.Folder)
		if err != nil {
			log.Fatalf("Configure media: %v", err)
		}
		uploader = cld
	} else {
		log.Info("CLOUDINARY_URL not set, image uploads disabled")
	}

	hub := realtime.NewHub(log, cfg.Server.CORSOrigins)
	defer hub.Close()

	orderSvc := orders.NewService(st,
		orders.WithPriceSource(orders.PriceSource(cfg.Order.PriceSource)),
		orders.WithNotifier(hub),
		orders.WithLogger(log),
	)
	schema, err := graph.NewSchema(orderSvc)
	if err != nil {
		log.Fatalf("Build GraphQL schema: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.Deps{
		Accounts:    accts,
		Categories:  catalog.NewCategoryService(st, log),
		Products:    catalog.NewProductService(st, uploader, log),
		Orders:      orderSvc,
		Tokens:      tokens,
		Hub:         hub,
		GraphQL:     schema,
		Log:         log,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Errorf("Server error: %v", err)
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown")
	}
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := database.NewConnection(&cfg.Database)
		if err != nil {
			return nil, err
		}
		ran, err := migrations.Run(ctx, db, migrations.Up)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.WithField("files", ran).Info("Migrations applied")
		return pgstore.New(db), nil

	case config.DriverMongo:
		client, err := database.NewMongoClient(&cfg.Mongo)
		if err != nil {
			return nil, err
		}
		st := mongostore.New(client, cfg.Mongo.Database)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(context.Background())
			return nil, err
		}
		return st, nil

	default:
		log.Warn("Using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
}
