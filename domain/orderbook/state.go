package orderbook

import (
	"fmt"
	"time"
)

// State is the trading session state of one order book.
type State int

const (
	StateUnknown State = iota
	Closed
	PreTrade
	OpenAuctionTrading
	OpenAuctionRun
	ContinuousTrading
	ClosingAuctionTrading
	ClosingAuctionRun
	PostTrade
	TradeHalt
)

var stateNames = map[State]string{
	StateUnknown:          "UNKNOWN",
	Closed:                "CLOSED",
	PreTrade:              "PRE_TRADE",
	OpenAuctionTrading:    "OPEN_AUCTION_TRADING",
	OpenAuctionRun:        "OPEN_AUCTION_RUN",
	ContinuousTrading:     "CONTINUOUS_TRADING",
	ClosingAuctionTrading: "CLOSING_AUCTION_TRADING",
	ClosingAuctionRun:     "CLOSING_AUCTION_RUN",
	PostTrade:             "POST_TRADE",
	TradeHalt:             "TRADE_HALT",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// transitions holds the allowed next states. A same-state change is always a
// no-op and is not listed here.
var transitions = map[State][]State{
	Closed:                {PreTrade, TradeHalt},
	PreTrade:              {OpenAuctionTrading, ContinuousTrading, TradeHalt},
	OpenAuctionTrading:    {OpenAuctionRun, TradeHalt},
	OpenAuctionRun:        {ContinuousTrading, TradeHalt},
	ContinuousTrading:     {ClosingAuctionTrading, PostTrade, TradeHalt},
	ClosingAuctionTrading: {ClosingAuctionRun, TradeHalt},
	ClosingAuctionRun:     {PostTrade, TradeHalt},
	PostTrade:             {Closed, TradeHalt},
	TradeHalt:             {Closed, PreTrade, OpenAuctionTrading, ContinuousTrading, PostTrade},
}

// CanTransition reports whether moving from s to next is allowed. Re-entering
// the current state is always allowed and leaves the book untouched.
func (s State) CanTransition(next State) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Accepting reports whether order entry is open in this state. Orders arriving
// while not accepting are rejected at the book, not queued.
func (s State) Accepting() bool {
	switch s {
	case Closed, TradeHalt, StateUnknown:
		return false
	default:
		return true
	}
}

// Continuous reports whether incoming orders match immediately.
func (s State) Continuous() bool { return s == ContinuousTrading }

// AuctionRun reports whether the state triggers an uncrossing when entered.
func (s State) AuctionRun() bool {
	return s == OpenAuctionRun || s == ClosingAuctionRun
}

// followState is the state a book advances to on its own once an auction run
// completes. Auction run states are transient: the run happens on entry and
// the book moves straight on.
func (s State) followState() (State, bool) {
	switch s {
	case OpenAuctionRun:
		return ContinuousTrading, true
	case ClosingAuctionRun:
		return PostTrade, true
	default:
		return StateUnknown, false
	}
}

// StateChange is a request to move one book, or every book, to a new state.
// An empty OrderbookID addresses all books on the engine.
type StateChange struct {
	OrderbookID string    `json:"orderbookId,omitempty"`
	TargetState State     `json:"targetState"`
	EffectiveAt time.Time `json:"effectiveAt"`
	Sequence    uint64    `json:"sequence"`
}
