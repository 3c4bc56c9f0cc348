package service

// Wire-структуры брокерского протокола: JSON поверх websocket,
// один запрос — один коррелированный ответ (req_id).

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	MsgType string    `json:"msg_type"`
	ReqID   int64     `json:"req_id"`
	Error   *apiError `json:"error"`
}

type authorizeResponse struct {
	envelope
	Authorize struct {
		Balance  float64 `json:"balance"`
		Currency string  `json:"currency"`
		LoginID  string  `json:"loginid"`
	} `json:"authorize"`
}

type balanceResponse struct {
	envelope
	Balance struct {
		Balance  float64 `json:"balance"`
		Currency string  `json:"currency"`
	} `json:"balance"`
}

type ticksHistoryResponse struct {
	envelope
	History struct {
		Prices []float64 `json:"prices"`
		Times  []int64   `json:"times"`
	} `json:"history"`
}

type proposalResponse struct {
	envelope
	Proposal struct {
		ID       string  `json:"id"`
		AskPrice float64 `json:"ask_price"`
		Payout   float64 `json:"payout"`
	} `json:"proposal"`
}

type buyResponse struct {
	envelope
	Buy struct {
		ContractID int64   `json:"contract_id"`
		BuyPrice   float64 `json:"buy_price"`
	} `json:"buy"`
}

type openContractResponse struct {
	envelope
	OpenContract struct {
		IsSold int     `json:"is_sold"`
		Profit float64 `json:"profit"`
	} `json:"proposal_open_contract"`
}
