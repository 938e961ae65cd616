// Package app wires configuration, storage, pricing, and HTTP surfaces into
// a runnable subscription service.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/config"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/db"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/events"
	adminapi "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/http/api/admin"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/http/api/front"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/invoices"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ledger"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/oracle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/owner"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ratelimit"
	internalsettings "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settings"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/treasury"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the subscription API server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errSettings := internalsettings.LoadFromDB(conn); errSettings != nil {
		log.WithError(errSettings).Warn("load settings snapshot failed")
	}

	if errOwner := bootstrapOwner(conn, configPath); errOwner != nil {
		return errOwner
	}

	jwtConfig, _ := config.LoadJWTConfig(configPath)

	settlementCfg, errSettlement := config.LoadSettlementConfig(configPath)
	if errSettlement != nil {
		return errSettlement
	}
	adapter, errOracle := buildOracle(settlementCfg)
	if errOracle != nil {
		return errOracle
	}

	authorizer := owner.NewAuthorizer(conn)
	planRegistry := plans.NewRegistry(conn, authorizer)
	tokenRegistry := tokens.NewRegistry(conn, authorizer)
	subscriptionLedger := ledger.NewLedger(conn)

	dispatcher := events.NewDispatcher(buildEventSinks()...)
	engine := settle.NewEngine(conn, settle.Config{
		Treasury:    settlementCfg.Treasury,
		UsdDecimals: settlementCfg.UsdDecimals,
	}, planRegistry, tokenRegistry, adapter, treasury.NewJournal(), dispatcher)

	limiter := ratelimit.NewManager(nil, nil, nil)

	settingsWatcher := watcher.New(conn, adapter)
	settingsWatcher.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	adminapi.RegisterAdminRoutes(router, conn, jwtConfig, planRegistry, tokenRegistry, engine)
	front.RegisterFrontRoutes(router, front.Deps{
		Plans:    planRegistry,
		Tokens:   tokenRegistry,
		Ledger:   subscriptionLedger,
		Engine:   engine,
		Invoices: invoices.NewTracker(conn),
		Limiter:  limiter,
	})

	serverCfg := config.LoadServerConfig(configPath, defaultPort)
	addr := fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting subscription server on %s with config=%s", addr, configPath)
	if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
		return errListen
	}
	return nil
}

// bootstrapOwner seeds the first admin account from config when none exists.
func bootstrapOwner(conn *gorm.DB, configPath string) error {
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	if initialized {
		return nil
	}

	bootstrap, errLoad := config.LoadOwnerBootstrap(configPath)
	if errLoad != nil {
		return errLoad
	}
	if bootstrap.Username == "" || strings.TrimSpace(bootstrap.Password) == "" {
		log.Warn("no admin account exists and no owner bootstrap configured; admin API is unusable until one is created")
		return nil
	}
	if errCreate := CreateAdminUserWithConn(conn, bootstrap.Username, bootstrap.Password, ""); errCreate != nil {
		return errCreate
	}
	log.Infof("bootstrapped owner account %q", bootstrap.Username)
	return nil
}

// buildOracle assembles the price oracle from configured feeds.
func buildOracle(cfg config.SettlementConfig) (*oracle.Adapter, error) {
	adapter := oracle.NewAdapter(cfg.MaxPriceAge)
	httpClient := &http.Client{Timeout: 10 * time.Second}

	for _, feed := range cfg.Feeds {
		id := strings.TrimSpace(feed.ID)
		if id == "" {
			return nil, fmt.Errorf("price feed missing id")
		}
		switch strings.ToLower(strings.TrimSpace(feed.Type)) {
		case "http":
			if strings.TrimSpace(feed.URL) == "" {
				return nil, fmt.Errorf("price feed %q: missing url", id)
			}
			adapter.Register(id, oracle.NewHTTPFeed(httpClient, feed.URL, feed.APIKey))
		case "static":
			answer, ok := new(big.Int).SetString(strings.TrimSpace(feed.Answer), 10)
			if !ok || answer.Sign() <= 0 {
				return nil, fmt.Errorf("price feed %q: invalid answer %q", id, feed.Answer)
			}
			adapter.Register(id, oracle.NewStaticFeed(answer, feed.Decimals, time.Now().UTC()))
		default:
			return nil, fmt.Errorf("price feed %q: unsupported type %q", id, feed.Type)
		}
	}
	return adapter, nil
}

// buildEventSinks selects payment event sinks from the settings snapshot.
// Redis publishing reuses the rate limit Redis connection settings.
func buildEventSinks() []events.Sink {
	sinks := []events.Sink{events.LogSink{}}

	redisCfg := ratelimit.LoadSettingsConfig()
	if !redisCfg.RedisEnabled || strings.TrimSpace(redisCfg.RedisAddr) == "" {
		return sinks
	}
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.RedisAddr,
		Password: redisCfg.RedisPassword,
		DB:       redisCfg.RedisDB,
	})
	return append(sinks, events.NewRedisSink(client, paymentEventChannel()))
}

// paymentEventChannel resolves the Redis channel for payment events.
func paymentEventChannel() string {
	if raw, ok := internalsettings.DBConfigValue(internalsettings.PaymentEventChannelKey); ok {
		var channel string
		if errUnmarshal := json.Unmarshal(raw, &channel); errUnmarshal == nil {
			if channel = strings.TrimSpace(channel); channel != "" {
				return channel
			}
		}
	}
	return internalsettings.DefaultPaymentEventChannel
}
