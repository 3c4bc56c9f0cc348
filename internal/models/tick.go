package models

import "time"

// Side — направление сделки: "BUY"/"SELL" или пустая строка (нет сигнала).
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Tick — одна котировка брокера. Живёт только в окне анализа.
type Tick struct {
	Time  time.Time
	Price float64
}
