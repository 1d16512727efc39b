package broadcaster

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"exchange/domain/orderbook"
	"exchange/infra/kafka"
	"exchange/infra/sequence"
)

// Topics names the outbound streams.
type Topics struct {
	OrderData   string `yaml:"orderData"`
	TradeData   string `yaml:"tradeData"`
	TopOfBook   string `yaml:"topOfBook"`
	StateChange string `yaml:"stateChange"`
}

type stateChange struct {
	OrderbookID string          `json:"orderbookId"`
	State       orderbook.State `json:"state"`
}

// Broadcaster takes everything the engines produce and publishes it. Engine
// workers hand off through buffered channels so a slow broker never stalls
// matching; when a channel is full the message is dropped and counted in the
// log rather than applying backpressure to the hot path.
type Broadcaster struct {
	producer sarama.SyncProducer
	topics   Topics
	seqs     map[string]*sequence.Sequencer
	log      zerolog.Logger

	orders chan orderbook.Order
	trades chan orderbook.TradeExecution
	tops   chan orderbook.TopOfBook
	states chan stateChange
	done   chan struct{}
}

const channelDepth = 4096

func New(brokers []string, topics Topics, log zerolog.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create broadcast producer: %w", err)
	}
	return newWith(producer, topics, log), nil
}

func newWith(producer sarama.SyncProducer, topics Topics, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		producer: producer,
		topics:   topics,
		seqs: map[string]*sequence.Sequencer{
			kafka.CategoryOrderData:   sequence.New(0),
			kafka.CategoryTradeData:   sequence.New(0),
			kafka.CategoryTopOfBook:   sequence.New(0),
			kafka.CategoryStateChange: sequence.New(0),
		},
		log:    log.With().Str("component", "broadcaster").Logger(),
		orders: make(chan orderbook.Order, channelDepth),
		trades: make(chan orderbook.TradeExecution, channelDepth),
		tops:   make(chan orderbook.TopOfBook, channelDepth),
		states: make(chan stateChange, channelDepth),
		done:   make(chan struct{}),
	}
}

// Start launches the drain loop. It runs until the context ends, then flushes
// whatever the channels still hold before closing the producer.
func (b *Broadcaster) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				b.flush()
				if err := b.producer.Close(); err != nil {
					b.log.Error().Err(err).Msg("close producer")
				}
				return
			case o := <-b.orders:
				b.send(b.topics.OrderData, kafka.CategoryOrderData, o.OrderbookID, o)
			case t := <-b.trades:
				b.send(b.topics.TradeData, kafka.CategoryTradeData, t.Trade.OrderbookID, t)
			case top := <-b.tops:
				b.send(b.topics.TopOfBook, kafka.CategoryTopOfBook, top.OrderbookID, top)
			case sc := <-b.states:
				b.send(b.topics.StateChange, kafka.CategoryStateChange, sc.OrderbookID, sc)
			}
		}
	}()
	b.log.Info().Msg("broadcaster started")
}

// Wait blocks until the drain loop has flushed and exited.
func (b *Broadcaster) Wait() {
	<-b.done
}

func (b *Broadcaster) flush() {
	for {
		select {
		case o := <-b.orders:
			b.send(b.topics.OrderData, kafka.CategoryOrderData, o.OrderbookID, o)
		case t := <-b.trades:
			b.send(b.topics.TradeData, kafka.CategoryTradeData, t.Trade.OrderbookID, t)
		case top := <-b.tops:
			b.send(b.topics.TopOfBook, kafka.CategoryTopOfBook, top.OrderbookID, top)
		case sc := <-b.states:
			b.send(b.topics.StateChange, kafka.CategoryStateChange, sc.OrderbookID, sc)
		default:
			return
		}
	}
}

func (b *Broadcaster) send(topic, category, key string, payload any) {
	env, err := kafka.NewEnvelope(category, b.seqs[category].Next(), payload)
	if err != nil {
		b.log.Error().Err(err).Str("category", category).Msg("envelope build failed")
		return
	}
	value, err := env.Encode()
	if err != nil {
		b.log.Error().Err(err).Str("category", category).Msg("envelope encode failed")
		return
	}
	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Str("messageId", env.MessageID).Msg("publish failed")
	}
}

// ---- engine.Publisher ----

func (b *Broadcaster) PublishOrder(o orderbook.Order) {
	select {
	case b.orders <- o:
	default:
		b.log.Warn().Str("order", o.OrderID).Msg("order channel full, message dropped")
	}
}

func (b *Broadcaster) PublishTrade(t orderbook.TradeExecution) {
	select {
	case b.trades <- t:
	default:
		b.log.Warn().Str("trade", t.Trade.TradeID).Msg("trade channel full, message dropped")
	}
}

func (b *Broadcaster) PublishTopOfBook(t orderbook.TopOfBook) {
	select {
	case b.tops <- t:
	default:
		b.log.Warn().Str("orderbook", t.OrderbookID).Msg("top-of-book channel full, message dropped")
	}
}

func (b *Broadcaster) PublishStateChange(orderbookID string, state orderbook.State) {
	select {
	case b.states <- stateChange{OrderbookID: orderbookID, State: state}:
	default:
		b.log.Warn().Str("orderbook", orderbookID).Msg("state channel full, message dropped")
	}
}
