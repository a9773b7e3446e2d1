package bus

type EventId uint8

const (
	TickEvent EventId = iota
	CandleEvent
	OrderUpdateEvent
	PositionUpdateEvent
	MetricsEvent
	LedgerEvent
)
