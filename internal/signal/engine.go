package signal

import (
	"option_bot/internal/models"
)

// Engine — то, что движок сессии дергает на каждом окне тиков.
// Чистая функция от окна: без состояния, без сайд-эффектов.
type Engine interface {
	// Analyse возвращает BUY/SELL или SideNone (нет сигнала).
	Analyse(ticks []models.Tick) models.Side
	MinTicks() int
	Name() string
}

// LastFirst — тренд по сравнению последней и первой цены окна.
type LastFirst struct {
	minTicks int
}

func NewLastFirst(minTicks int) *LastFirst {
	if minTicks < 2 {
		minTicks = 2
	}
	return &LastFirst{minTicks: minTicks}
}

func (e *LastFirst) Name() string  { return "last_first" }
func (e *LastFirst) MinTicks() int { return e.minTicks }

func (e *LastFirst) Analyse(ticks []models.Tick) models.Side {
	if len(ticks) < e.minTicks {
		return models.SideNone
	}
	first := ticks[0].Price
	last := ticks[len(ticks)-1].Price
	switch {
	case last > first:
		return models.SideBuy
	case last < first:
		return models.SideSell
	default:
		return models.SideNone
	}
}

// SplitMean — тренд по средним двух половин окна. Менее дёрганный
// вариант того же правила: сглаживает одиночные выбросы.
type SplitMean struct {
	minTicks int
}

func NewSplitMean(minTicks int) *SplitMean {
	if minTicks < 4 {
		minTicks = 4
	}
	return &SplitMean{minTicks: minTicks}
}

func (e *SplitMean) Name() string  { return "split_mean" }
func (e *SplitMean) MinTicks() int { return e.minTicks }

func (e *SplitMean) Analyse(ticks []models.Tick) models.Side {
	if len(ticks) < e.minTicks {
		return models.SideNone
	}
	mid := len(ticks) / 2
	older := mean(ticks[:mid])
	newer := mean(ticks[mid:])
	switch {
	case newer > older:
		return models.SideBuy
	case newer < older:
		return models.SideSell
	default:
		return models.SideNone
	}
}

func mean(ticks []models.Tick) float64 {
	if len(ticks) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range ticks {
		sum += t.Price
	}
	return sum / float64(len(ticks))
}
