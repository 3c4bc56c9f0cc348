package runner

import (
	"math"

	"option_bot/internal/models"
)

// Мартингейл с полом: после проигрыша ставка умножается, после выигрыша
// возвращается на базу. Константы политики, не конфиг.
const (
	stakeMultiplier  = 2.2
	minTradableStake = 0.5 // минимальная ставка, которую принимает брокер
	maxAuthFailures  = 3
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApplySettlement обновляет счётчики и ставку сессии по результату
// рассчитанного контракта. Возврат ставки (profit == 0) ничего не меняет:
// серия проигрышей не маскируется.
func ApplySettlement(s *models.Session, profit float64) {
	switch {
	case profit > 0:
		s.TotalWins++
		s.ConsecutiveLosses = 0
		s.CurrentAmount = s.Config.BaseAmount
	case profit < 0:
		s.TotalLosses++
		s.ConsecutiveLosses++
		next := round2(s.CurrentAmount * stakeMultiplier)
		if next < s.Config.BaseAmount {
			next = s.Config.BaseAmount
		}
		s.CurrentAmount = next
	default:
		// стейк вернулся — ни ставка, ни серия не трогаются
	}
}

// SubmitStake — сумма, которая реально уйдёт брокеру: копейки округлены,
// пол по минимальной ставке.
func SubmitStake(s *models.Session) float64 {
	stake := round2(s.CurrentAmount)
	if stake < minTradableStake {
		stake = minTradableStake
	}
	return stake
}
