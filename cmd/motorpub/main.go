// motorpub publishes a synthetic motor state on a mirrored topic. Pair it
// with motorsub for local delivery and mqrouterd to watch the same traffic
// leave the host as wire packets.
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/mqipc/internal/logging"
	"github.com/danmuck/mqipc/internal/mq"
	"github.com/danmuck/mqipc/internal/wire"
)

type motorState struct {
	Position float32
	Velocity float32
	Torque   float32
}

func main() {
	topicName := flag.String("topic", "/example_motor_state", "topic queue name")
	capacity := flag.Int("capacity", 4, "topic queue depth")
	interval := flag.Duration("interval", 10*time.Millisecond, "publish period")
	flag.Parse()

	logging.ConfigureRuntime()
	log := logging.Component("motorpub")

	tx, err := wire.NewTx[motorState](*topicName, *capacity)
	if err != nil {
		log.Fatal().Err(err).Str("topic", *topicName).Msg("open mirrored topic")
	}
	defer tx.Close()

	log.Info().Str("topic", *topicName).Str("mirror", wire.MirrorQueue).Msg("publishing")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	state := motorState{Velocity: 1, Torque: 0.42}
	for {
		select {
		case <-stop:
			log.Info().Msg("stopping")
			return
		case <-ticker.C:
		}

		state.Position += 0.1
		state.Velocity += 0.05

		err := tx.Publish(state, 1, 0)
		switch {
		case err == nil:
			log.Debug().
				Float32("position", state.Position).
				Float32("velocity", state.Velocity).
				Msg("published")
		case errors.Is(err, mq.ErrFull):
			// no consumer keeping up; drop this tick
			log.Debug().Msg("topic full, sample dropped")
		default:
			log.Error().Err(err).Msg("publish failed")
		}
	}
}
