package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestTradesRequestQuery(t *testing.T) {
	maker := common.Address{}
	q := TradesRequest{
		ID:           "aa-bb",
		MakerAddress: &maker,
		Market:       "10000",
		AssetID:      "100",
	}.Query()

	assert.Len(t, q, 4)
	assert.Equal(t, "aa-bb", q.Get("id"))
	assert.Equal(t, "0x0000000000000000000000000000000000000000", q.Get("maker"))
	assert.Equal(t, "10000", q.Get("market"))
	assert.Equal(t, "100", q.Get("asset_id"))
	assert.Empty(t, q.Get("taker"))

	assert.Empty(t, TradesRequest{}.Query())
}

func TestOrdersRequestQuery(t *testing.T) {
	q := OrdersRequest{OrderID: "aa-bb", Market: "10000", AssetID: "100"}.Query()

	assert.Len(t, q, 3)
	assert.Equal(t, "aa-bb", q.Get("id"))
	assert.Equal(t, "10000", q.Get("market"))
	assert.Equal(t, "100", q.Get("asset_id"))
}

func TestBalanceAllowanceRequestQuery(t *testing.T) {
	sig := EOA
	q := BalanceAllowanceRequest{
		AssetType:     Collateral,
		TokenID:       "1",
		SignatureType: &sig,
	}.Query()

	assert.Equal(t, "asset_type=COLLATERAL&signature_type=0&token_id=1", q.Encode())

	q = BalanceAllowanceRequest{AssetType: Conditional}.Query()
	assert.Equal(t, "asset_type=CONDITIONAL", q.Encode())
}

func TestPriceHistoryRequestQuery(t *testing.T) {
	q := PriceHistoryRequest{
		Market:   "0xaabb",
		Range:    RangeFromInterval(Interval1d),
		Fidelity: 100,
	}.Query()
	assert.Equal(t, "fidelity=100&interval=1d&market=0xaabb", q.Encode())

	q = PriceHistoryRequest{
		Market: "0xaabb",
		Range:  RangeBetween(1_700_000_000, 1_700_100_000),
	}.Query()
	assert.Equal(t, "endTs=1700100000&market=0xaabb&startTs=1700000000", q.Encode())
}

func TestTimeRangeIntervalWins(t *testing.T) {
	q := PriceHistoryRequest{
		Market: "m",
		Range:  TimeRange{Interval: Interval1h, StartTs: 5, EndTs: 6},
	}.Query()

	assert.Equal(t, "1h", q.Get("interval"))
	assert.Empty(t, q.Get("startTs"))
}

func TestTokenIDs(t *testing.T) {
	assert.Equal(t,
		[]TokenID{{TokenID: "1"}, {TokenID: "2"}},
		TokenIDs("1", "2"),
	)
	assert.Empty(t, TokenIDs())
}
