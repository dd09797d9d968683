package models

import "subwaychallenge.org/pathfinder/internal/transit"

type Transfer struct {
	FromStopID string `json:"fromStopId"`
	ToStopID   string `json:"toStopId"`
	Minutes    int    `json:"minutes"`
	IsWalking  bool   `json:"isWalking"`
}

func NewTransfer(t transit.Transfer) Transfer {
	return Transfer{FromStopID: t.FromStopID, ToStopID: t.ToStopID, Minutes: t.Minutes, IsWalking: t.IsWalking}
}

func NewTransfers(ts []transit.Transfer) []Transfer {
	out := make([]Transfer, 0, len(ts))
	for _, t := range ts {
		out = append(out, NewTransfer(t))
	}
	return out
}
