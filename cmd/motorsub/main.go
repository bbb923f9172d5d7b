// motorsub attaches to the motor state topic and logs every update it wins
// from the shared queue.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/mqipc/internal/logging"
	"github.com/danmuck/mqipc/internal/topic"
)

type motorState struct {
	Position float32
	Velocity float32
	Torque   float32
}

func main() {
	topicName := flag.String("topic", "/example_motor_state", "topic queue name")
	capacity := flag.Int("capacity", 4, "topic queue depth if this process creates it")
	flag.Parse()

	logging.ConfigureRuntime()
	log := logging.Component("motorsub")

	tp, err := topic.New[motorState](*topicName, *capacity)
	if err != nil {
		log.Fatal().Err(err).Str("topic", *topicName).Msg("open topic")
	}
	defer tp.Close()

	tp.Subscribe(func(s motorState) error {
		log.Info().
			Float32("position", s.Position).
			Float32("velocity", s.Velocity).
			Float32("torque", s.Torque).
			Msg("motor state")
		return nil
	})

	log.Info().Str("topic", *topicName).Msg("listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("stopping")
}
