package refdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
)

const (
	orderbookPrefix  = "ob/"
	instrumentPrefix = "in/"
	calendarPrefix   = "cal/"
)

// Store is a pebble-backed reference data store with a read-through cache.
// Writes land in pebble synchronously and update the cache, so lookups on the
// matching hot path never touch disk after warm-up.
type Store struct {
	db  *pebble.DB
	log zerolog.Logger

	orderbooks  sync.Map // string -> OrderbookData
	instruments sync.Map // string -> Instrument
	calendars   sync.Map // string -> TradingCalendar
}

func Open(dir string, log zerolog.Logger) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open refdata store: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "refdata").Logger()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.db.Set([]byte(key), b, pebble.Sync); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(key string, v any) (bool, error) {
	b, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	defer closer.Close()
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) PutOrderbook(data OrderbookData) error {
	if err := s.put(orderbookPrefix+data.OrderbookID, data); err != nil {
		return err
	}
	s.orderbooks.Store(data.OrderbookID, data)
	s.log.Debug().Str("orderbook", data.OrderbookID).Msg("orderbook data stored")
	return nil
}

func (s *Store) PutInstrument(in Instrument) error {
	if err := s.put(instrumentPrefix+in.InstrumentID, in); err != nil {
		return err
	}
	s.instruments.Store(in.InstrumentID, in)
	return nil
}

func (s *Store) PutCalendar(cal TradingCalendar) error {
	if err := s.put(calendarPrefix+cal.CalendarID, cal); err != nil {
		return err
	}
	s.calendars.Store(cal.CalendarID, cal)
	return nil
}

func (s *Store) Orderbook(orderbookID string) (OrderbookData, bool) {
	if v, ok := s.orderbooks.Load(orderbookID); ok {
		return v.(OrderbookData), true
	}
	var data OrderbookData
	found, err := s.get(orderbookPrefix+orderbookID, &data)
	if err != nil {
		s.log.Error().Err(err).Str("orderbook", orderbookID).Msg("orderbook lookup")
		return OrderbookData{}, false
	}
	if found {
		s.orderbooks.Store(orderbookID, data)
	}
	return data, found
}

func (s *Store) Instrument(instrumentID string) (Instrument, bool) {
	if v, ok := s.instruments.Load(instrumentID); ok {
		return v.(Instrument), true
	}
	var in Instrument
	found, err := s.get(instrumentPrefix+instrumentID, &in)
	if err != nil {
		s.log.Error().Err(err).Str("instrument", instrumentID).Msg("instrument lookup")
		return Instrument{}, false
	}
	if found {
		s.instruments.Store(instrumentID, in)
	}
	return in, found
}

func (s *Store) Calendar(calendarID string) (TradingCalendar, bool) {
	if v, ok := s.calendars.Load(calendarID); ok {
		return v.(TradingCalendar), true
	}
	var cal TradingCalendar
	found, err := s.get(calendarPrefix+calendarID, &cal)
	if err != nil {
		s.log.Error().Err(err).Str("calendar", calendarID).Msg("calendar lookup")
		return TradingCalendar{}, false
	}
	if found {
		s.calendars.Store(calendarID, cal)
	}
	return cal, found
}
