package ws

// interest is a bit set of event kinds a connection cares about. Frames whose
// event type is outside the set are dropped before the payload decode.
type interest uint16

const (
	interestBook interest = 1 << iota
	interestPriceChange
	interestTickSizeChange
	interestLastTradePrice
	interestBestBidAsk
	interestNewMarket
	interestMarketResolved
	interestTrade
	interestOrder
)

const (
	interestMarket = interestBook | interestPriceChange | interestTickSizeChange |
		interestLastTradePrice | interestBestBidAsk | interestNewMarket | interestMarketResolved
	interestUser = interestTrade | interestOrder
)

func eventInterest(event string) interest {
	switch event {
	case EventBook:
		return interestBook
	case EventPriceChange:
		return interestPriceChange
	case EventTickSizeChange:
		return interestTickSizeChange
	case EventLastTradePrice:
		return interestLastTradePrice
	case EventBestBidAsk:
		return interestBestBidAsk
	case EventNewMarket:
		return interestNewMarket
	case EventMarketResolved:
		return interestMarketResolved
	case EventTrade:
		return interestTrade
	case EventOrder:
		return interestOrder
	default:
		return 0
	}
}

func (i interest) contains(event string) bool {
	return i&eventInterest(event) != 0
}

func channelInterest(ch Channel) interest {
	if ch == ChannelUser {
		return interestUser
	}
	return interestMarket
}
