// mqrouterd closes the distributed loop: it drains locally mirrored wire
// packets off /ipc_tx and pushes them over the bridge, and re-injects
// packets arriving from the bridge into matching local topics.
//
// With the bridge disabled it degrades to a wire tap that logs every
// mirrored packet, which is handy when bringing up a new peer.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/danmuck/mqipc/internal/bridge"
	"github.com/danmuck/mqipc/internal/config"
	"github.com/danmuck/mqipc/internal/logging"
	"github.com/danmuck/mqipc/internal/mq"
	"github.com/danmuck/mqipc/internal/router"
	"github.com/danmuck/mqipc/internal/wire"
)

func main() {
	configPath := flag.String("config", "mqrouterd.toml", "path to router config")
	flag.Parse()

	logging.ConfigureRuntime()
	log := logging.Component("mqrouterd")

	cfg, err := config.LoadRouterConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mirror, err := router.NewMirrorSource(cfg.MirrorCapacity)
	if err != nil {
		log.Fatal().Err(err).Msg("open mirror queue")
	}
	defer mirror.Close()

	var link *bridge.UDP
	if cfg.Bridge.Enabled {
		link, err = bridge.NewUDP(cfg.Bridge.Listen, cfg.Bridge.Peer)
		if err != nil {
			log.Fatal().Err(err).Msg("open bridge")
		}
		defer link.Close()
		log.Info().Str("listen", cfg.Bridge.Listen).Str("peer", cfg.Bridge.Peer).Msg("bridge up")
	}

	var wg sync.WaitGroup

	// TX direction: mirrored local publishes leave the host.
	wg.Add(1)
	go func() {
		defer wg.Done()
		drainMirror(ctx, cfg, mirror, link, log)
	}()

	// RX direction: packets from the peer re-enter local topics.
	if link != nil {
		r := router.New(
			router.WithDefaultPriority(cfg.DefaultPriority),
			router.WithPollInterval(cfg.PollInterval()),
		)
		defer r.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx, bridge.AsSource(link)); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("router stopped")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("stopping")
	wg.Wait()
}

func drainMirror(ctx context.Context, cfg config.RouterConfig, mirror *router.MirrorSource, link *bridge.UDP, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pkt, err := mirror.Next(cfg.PollInterval())
		if err != nil {
			if errors.Is(err, mq.ErrEmpty) || errors.Is(err, mq.ErrTimeout) {
				continue
			}
			if errors.Is(err, wire.ErrMalformedPacket) {
				log.Warn().Err(err).Msg("dropping malformed mirror packet")
				continue
			}
			log.Error().Err(err).Msg("mirror drain stopped")
			return
		}

		if link == nil {
			log.Info().
				Str("topic", pkt.Topic).
				Int("payload_len", len(pkt.Payload)).
				Str("payload", hex.EncodeToString(pkt.Payload)).
				Msg("wire tx")
			continue
		}
		if cfg.Bridge.Peer == "" {
			// receive-only bridge; mirrored traffic has nowhere to go
			continue
		}
		if err := link.Send(pkt); err != nil {
			log.Warn().Str("topic", pkt.Topic).Err(err).Msg("bridge send failed")
		}
	}
}
