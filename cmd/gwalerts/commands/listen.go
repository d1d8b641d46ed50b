package commands

import (
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"gwalerts/internal/downloader"
	"gwalerts/internal/gcn"
	"gwalerts/internal/storage"
	"gwalerts/internal/ws"
)

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to the alert stream and download skymaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()

			var store storage.Store
			if cfg.Database != "" {
				s, err := storage.NewSQLite(cfg.Database)
				if err != nil {
					log.Error().Err(err).Msg("open archive database")
					return err
				}
				defer s.Close()
				store = s
			}

			var hub *ws.Hub
			if cfg.Serve != "" {
				hub = ws.NewHub(log)
				go func() {
					log.Info().Str("addr", cfg.Serve).Msg("websocket server starting")
					if err := ws.Serve(cfg.Serve, hub); err != nil {
						log.Error().Err(err).Msg("websocket server stopped")
					}
				}()
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var d *downloader.Downloader
			if hub != nil {
				d = downloader.New(cfg, store, hub, log)
			} else {
				d = downloader.New(cfg, store, nil, log)
			}

			var wg sync.WaitGroup
			for _, topic := range cfg.Kafka.Topics {
				reader, err := gcn.NewReader(cfg.Kafka, topic)
				if err != nil {
					log.Error().Err(err).Str("topic", topic).Msg("reader setup failed")
					return err
				}
				wg.Add(1)
				go func(topic string, r downloader.MessageReader) {
					defer wg.Done()
					_ = d.Run(ctx, topic, r)
				}(topic, reader)
				defer reader.Close()
			}

			<-ctx.Done()
			log.Info().Msg("shutting down")
			wg.Wait()
			return nil
		},
	}
}
