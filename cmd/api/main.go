package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Juzanki/smartbiz-hub/config"
	"github.com/Juzanki/smartbiz-hub/hub"
	"github.com/Juzanki/smartbiz-hub/internal/http/chi"
	"github.com/Juzanki/smartbiz-hub/metrics"
	"github.com/Juzanki/smartbiz-hub/seed"
	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/Juzanki/smartbiz-hub/webhook/redis"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* “a porta de entrada e saída da minha aplicação”
* É no arquivo main.go, que vai ser compilado para gerar o executável da aplicação,
* onde é feita toda a “amarração” dos demais pacotes.
* É nele onde iniciamos as dependências, fazemos as configurações e a invocação
* dos pacotes que desempenham a lógica de negócio.
 */

/*
 * As importações devem ser feitas apenas em uma direção: para baixo. O aplicativo (api, cli)
 * importa camadas de negócios, que importam a camada de armazenamento
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	repo, err := redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Error().Err(err).Msg("connecting to redis")
		return
	}
	defer repo.Close(ctx)

	sender := webhook.NewSender(repo, webhook.SenderConfig{
		Timeout:       time.Duration(cfg.DeliveryTimeoutSeconds) * time.Second,
		BurstAttempts: cfg.DeliveryBurstAttempts,
	}, log.With().Str("component", "sender").Logger())

	s := webhook.NewService(repo, sender, log.With().Str("component", "webhook").Logger())

	retrier := webhook.NewRetrier(repo, sender,
		time.Duration(cfg.RetryPollSeconds)*time.Second, cfg.RetryBatch,
		log.With().Str("component", "retrier").Logger())
	retrier.Start(ctx)
	defer retrier.Stop()

	rooms := hub.New(log.With().Str("component", "hub").Logger())

	if cfg.SeedFile != "" {
		loader := seed.NewLoader()
		if err := loader.Load(cfg.SeedFile); err != nil {
			log.Error().Err(err).Str("file", cfg.SeedFile).Msg("loading seed endpoints")
			return
		}
		applied, err := loader.Apply(ctx, s)
		if err != nil {
			log.Error().Err(err).Msg("applying seed endpoints")
			return
		}
		log.Info().Int("endpoints", applied).Msg("seed endpoints installed")
	}

	collector := metrics.NewSystemCollector(rooms, repo)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		log.Error().Err(err).Msg("setting up metrics")
		return
	}
	defer exporter.Shutdown(context.Background())

	r := chi.Handlers(ctx, chi.Deps{
		Webhooks: s,
		Rooms:    rooms,
		Presence: repo,
		Metrics:  exporter.ServeHTTP(),
		Log:      log.With().Str("component", "live").Logger(),
	})
	http.Handle("/", r)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      http.DefaultServeMux,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	log.Info().Str("port", cfg.Port).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server failed")
		return
	}
	err = <-errShutdown
	if err != nil {
		log.Error().Err(err).Msg("shutdown failed")
		return
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
