package models

// Proposal — котировка брокера на покупку контракта.
type Proposal struct {
	ID       string
	AskPrice float64
	Payout   float64
}

// ContractStatus — ответ брокера на запрос состояния контракта.
type ContractStatus struct {
	IsSold bool
	Profit float64
}
