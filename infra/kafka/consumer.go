package kafka

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded envelope. Returning an error logs and skips
// the message; consumption continues.
type Handler func(ctx context.Context, e Envelope) error

// Consumer reads envelopes from one topic and hands them to a handler in
// order. Per-category sequence numbers are checked for gaps; a gap is logged
// and consumption continues, since replays and retention cleanup make gaps
// expected at the edges.
type Consumer struct {
	reader  *kafka.Reader
	log     zerolog.Logger
	lastSeq map[string]uint64
}

func NewConsumer(brokers []string, topic, groupID string, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		log:     log.With().Str("topic", topic).Logger(),
		lastSeq: make(map[string]uint64),
	}
}

// Run consumes until the context ends. It always returns the reason it
// stopped; context cancellation is reported as ctx.Err().
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		env, err := DecodeEnvelope(msg.Value)
		if err != nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("undecodable message skipped")
			continue
		}
		c.checkSequence(env)
		if err := handle(ctx, env); err != nil {
			c.log.Error().Err(err).
				Str("messageId", env.MessageID).
				Str("category", env.Category).
				Msg("message handling failed")
		}
	}
}

func (c *Consumer) checkSequence(env Envelope) {
	last, seen := c.lastSeq[env.Category]
	if seen && env.Sequence != last+1 {
		c.log.Warn().
			Str("category", env.Category).
			Uint64("expected", last+1).
			Uint64("got", env.Sequence).
			Msg("sequence gap")
	}
	c.lastSeq[env.Category] = env.Sequence
}
