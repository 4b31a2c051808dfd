package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_finder/internal/adapters/currency"
	"hotel_finder/internal/adapters/geocode"
	"hotel_finder/internal/adapters/graphmail"
	"hotel_finder/internal/adapters/hotelapi"
	server "hotel_finder/internal/adapters/http_server"
	"hotel_finder/internal/adapters/ipgeo"
	"hotel_finder/internal/adapters/observability"
	redisad "hotel_finder/internal/adapters/redis"
	"hotel_finder/internal/adapters/sheety"
	"hotel_finder/internal/app"
	"hotel_finder/internal/domain"
	"hotel_finder/internal/shared"
	mysqlrepo "hotel_finder/internal/storage/mysql"
)

func main() {
	cfg, err := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	// refuse to start without credentials; nothing is bound yet
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// upstreams
	geo, err := geocode.New(cfg.GeocodingBaseURL, cfg.GeocodingKey, cfg.UpstreamTimeout, cfg.UpstreamRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("geocoding client")
	}
	hotels, err := hotelapi.New(cfg.HotelAPIBaseURL, cfg.HotelAPIHost, cfg.HotelAPIKey, cfg.UpstreamTimeout, cfg.UpstreamRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("hotel API client")
	}
	sheet, err := sheety.New(cfg.SheetyBaseURL, cfg.UpstreamTimeout, cfg.UpstreamRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("sheety client")
	}
	mail, err := graphmail.New(graphmail.Config{
		ClientID:     cfg.EmailClientID,
		ClientSecret: cfg.EmailClientSecret,
		TenantID:     cfg.EmailTenantID,
		Sender:       cfg.EmailSender,
		BCC:          cfg.EmailBCC,
		TokenURL:     cfg.EmailTokenURL,
		GraphBaseURL: cfg.EmailGraphBaseURL,
		Timeout:      cfg.UpstreamTimeout,
		RPS:          cfg.UpstreamRPS,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("email client")
	}
	fx := currency.New(cfg.CurrencyBaseURL, cfg.UpstreamTimeout, cfg.UpstreamRPS)

	var ip domain.IPLocator
	if c := ipgeo.New(cfg.IPGeoBaseURL, cfg.IPGeoKey, cfg.UpstreamTimeout, cfg.UpstreamRPS); c != nil {
		ip = c
	} else {
		log.Warn().Msg("IPGEOLOCATION_API_KEY is empty; /api/geolocation will answer 503")
	}

	// optional cache
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; continuing without cache")
		} else {
			cache = rc
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache enabled")
		}
		cancel()
	}

	// optional lead log
	var leadLog domain.LeadLog
	if cfg.MySQLDSN != "" {
		dsn, err := mysqlrepo.DSN(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid MYSQL_DSN")
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("lead log database connection ok")
		leadLog = mysqlrepo.New(db)
	}

	// deps
	locations := app.NewLocationService(geo, hotels, cache, cfg.CacheTTL)
	backend := app.NewDirectBackend(locations, hotels, fx)

	// http
	srv := server.New(cfg.UpstreamTimeout + 5*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Locations:     locations,
		Hotels:        hotels,
		FX:            fx,
		IP:            ip,
		Leads:         app.NewLeadService(sheet, leadLog),
		Notifier:      app.NewNotifier(mail),
		Searcher:      app.NewSearcher(backend),
		Limit:         cfg.ResultLimit,
		SearchTimeout: cfg.SearchTimeout,
	})
	srv.MountStatic(cfg.StaticDir)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
