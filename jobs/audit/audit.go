package audit

import (
	"context"

	"github.com/rs/zerolog"

	"exchange/infra/kafka"
	"exchange/infra/sequence"
)

// Trail records every inbound message to the audit topic before it reaches
// the engines, numbered so the stream can be replayed and checked for holes.
// Recording is best-effort: an unreachable audit broker must not stop order
// intake.
type Trail struct {
	producer *kafka.Producer
	seq      *sequence.Sequencer
	log      zerolog.Logger
}

func New(producer *kafka.Producer, log zerolog.Logger) *Trail {
	return &Trail{
		producer: producer,
		seq:      sequence.New(0),
		log:      log.With().Str("component", "audit").Logger(),
	}
}

// Record writes one audited message keyed by its source.
func (t *Trail) Record(ctx context.Context, source string, payload any) {
	env, err := kafka.NewEnvelope(kafka.CategoryAudit, t.seq.Next(), payload)
	if err != nil {
		t.log.Error().Err(err).Str("source", source).Msg("audit envelope build failed")
		return
	}
	value, err := env.Encode()
	if err != nil {
		t.log.Error().Err(err).Str("source", source).Msg("audit envelope encode failed")
		return
	}
	if err := t.producer.Send(ctx, []byte(source), value); err != nil {
		t.log.Error().Err(err).Str("source", source).Msg("audit record not written")
	}
}

func (t *Trail) Close() error {
	return t.producer.Close()
}
