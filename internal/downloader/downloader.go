// Package downloader runs the alert pipeline: consume a notice, archive it,
// persist the skymap and write contour MOCs.
package downloader

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"gwalerts/internal/alert"
	"gwalerts/internal/archive"
	"gwalerts/internal/config"
	"gwalerts/internal/moc"
	"gwalerts/internal/skymap"
	"gwalerts/internal/storage"
)

// MessageReader is the part of kafka.Reader the loop needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Broadcaster pushes a received notice to listeners. Satisfied by ws.Hub.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Downloader handles notices one at a time to completion. Store and hub
// are optional.
type Downloader struct {
	cfg    *config.Config
	layout archive.Layout
	store  storage.Store
	hub    Broadcaster
	log    zerolog.Logger

	now func() time.Time
}

func New(cfg *config.Config, store storage.Store, hub Broadcaster, log zerolog.Logger) *Downloader {
	return &Downloader{
		cfg:    cfg,
		layout: archive.Layout{Dir: cfg.Output.Directory, Organise: cfg.Output.Organise},
		store:  store,
		hub:    hub,
		log:    log,
		now:    time.Now,
	}
}

// Run consumes the topic until ctx is done. Read errors are logged and
// retried after a short pause; handling errors are logged and the message
// is skipped.
func (d *Downloader) Run(ctx context.Context, topic string, r MessageReader) error {
	log := d.log.With().Str("topic", topic).Logger()
	log.Info().Msg("listening for alerts")

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("consumer stopped")
				return nil
			}
			log.Error().Err(err).Msg("read error")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(1 * time.Second):
			}
			continue
		}
		if err := d.Handle(topic, m.Value); err != nil {
			log.Error().Err(err).Msg("notice skipped")
		}
	}
}

// Handle processes one raw notice payload to completion.
func (d *Downloader) Handle(topic string, value []byte) error {
	n, err := alert.Decode(value)
	if err != nil {
		return err
	}

	log := d.log.With().
		Str("superevent", n.SupereventID).
		Str("type", n.AlertType).
		Logger()

	if d.cfg.Output.SkipTestEvents && n.IsMockEvent() {
		log.Debug().Msg("mock event skipped")
		return nil
	}
	log.Info().Msg("notice received")

	if d.hub != nil {
		d.hub.Broadcast(value)
	}

	if d.cfg.Output.WriteRawAlert {
		if err := archive.Write(d.layout.NoticePath(n.SupereventID, n.AlertType), value); err != nil {
			return err
		}
	}

	skymapPath := ""
	if !n.IsRetraction() {
		skymapPath, err = d.handleSkymap(n, log)
		if err != nil {
			// Archive the notice before surfacing the skymap failure.
			d.record(n, topic, skymapPath)
			return err
		}
	} else {
		log.Info().Msg("candidate retracted")
	}

	d.record(n, topic, skymapPath)
	return nil
}

// handleSkymap writes the raw skymap and its contour MOCs, returning the
// skymap path when one was written.
func (d *Downloader) handleSkymap(n *alert.Notice, log zerolog.Logger) (string, error) {
	raw, err := n.SkymapBytes()
	if err != nil {
		// Early-warning notices can arrive before a skymap exists.
		log.Warn().Err(err).Msg("no skymap in notice")
		return "", nil
	}

	path := ""
	if d.cfg.Output.WriteSkymap {
		path = d.layout.SkymapPath(n.SupereventID, n.AlertType)
		if err := archive.Write(path, raw); err != nil {
			return "", err
		}
		log.Info().Str("path", path).Msg("skymap written")
	}

	if len(d.cfg.Output.Contours) == 0 {
		return path, nil
	}

	m, err := skymap.Read(bytes.NewReader(raw))
	if err != nil {
		return path, err
	}
	for _, level := range d.cfg.Output.Contours {
		cut, err := moc.Contour(m, level/100)
		if err != nil {
			return path, err
		}
		mocPath := d.layout.MOCPath(n.SupereventID, n.AlertType, level)
		if err := archive.EnsureDir(filepath.Dir(mocPath)); err != nil {
			return path, err
		}
		if err := cut.WriteFile(mocPath); err != nil {
			return path, err
		}
		log.Info().
			Str("path", mocPath).
			Float64("contour", level).
			Float64("area_sq_deg", cut.AreaSqDeg).
			Msg("MOC written")
	}
	return path, nil
}

func (d *Downloader) record(n *alert.Notice, topic, skymapPath string) {
	if d.store == nil {
		return
	}
	r := storage.Record{
		SupereventID: n.SupereventID,
		AlertType:    n.AlertType,
		Topic:        topic,
		ReceivedAt:   d.now(),
		HasSkymap:    skymapPath != "",
		Path:         skymapPath,
	}
	if n.Event != nil {
		r.FAR = n.Event.FAR
		r.Significant = n.Event.Significant
	}
	if err := d.store.RecordNotice(r); err != nil {
		d.log.Error().Err(err).Str("superevent", n.SupereventID).Msg("archive record failed")
	}
}
