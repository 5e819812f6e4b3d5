package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"mediachain/core"
	"mediachain/core/types"
	"mediachain/crypto"
	"mediachain/native/promotion"
)

// receiptResult is returned by every mutating method.
type receiptResult struct {
	Height uint64              `json:"height"`
	Events []types.EventRecord `json:"events"`
}

func receiptFrom(r core.Receipt) receiptResult {
	events := r.Events
	if events == nil {
		events = []types.EventRecord{}
	}
	return receiptResult{Height: r.Height, Events: events}
}

type balanceResult struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

type recurrentResult struct {
	Cap           string `json:"cap"`
	PeriodLength  uint64 `json:"periodLength"`
	SpentInPeriod string `json:"spentInPeriod"`
	PeriodStart   uint64 `json:"periodStart"`
	Remaining     string `json:"remaining"`
}

type allowanceResult struct {
	Owner     string           `json:"owner"`
	Spender   string           `json:"spender"`
	Allowance string           `json:"allowance"`
	Recurrent *recurrentResult `json:"recurrent,omitempty"`
}

type promotionResult struct {
	ContentID        string   `json:"contentId"`
	Round            uint64   `json:"round"`
	Owner            string   `json:"owner"`
	Escrow           string   `json:"escrow"`
	Status           string   `json:"status"`
	StartHeight      uint64   `json:"startHeight"`
	Duration         uint64   `json:"duration"`
	Budget           string   `json:"budget"`
	Likes            bool     `json:"likes"`
	Comments         bool     `json:"comments"`
	Shares           bool     `json:"shares"`
	Views            bool     `json:"views"`
	Authorities      []string `json:"authorities"`
	ReferralSplit    uint64   `json:"referralSplit"`
	MinViewCount     uint64   `json:"minViewCount"`
	InteractionCount uint64   `json:"interactionCount"`
	ViewCount        uint64   `json:"viewCount"`
	Ended            bool     `json:"ended"`
	EndedAt          uint64   `json:"endedAt,omitempty"`
	ActiveBuckets    uint64   `json:"activeBuckets,omitempty"`
	TotalPaid        string   `json:"totalPaid,omitempty"`
	Dust             string   `json:"dust,omitempty"`
	Refund           string   `json:"refund,omitempty"`
}

func promotionFrom(p *promotion.Promotion, height uint64) promotionResult {
	out := promotionResult{
		ContentID:        p.ContentID,
		Round:            p.Round,
		Owner:            crypto.FormatAccount(p.Owner),
		Escrow:           crypto.FormatAccount(p.Escrow),
		Status:           string(p.Status(height)),
		StartHeight:      p.StartHeight,
		Duration:         p.Duration,
		Budget:           amountString(p.Budget),
		Likes:            p.Likes,
		Comments:         p.Comments,
		Shares:           p.Shares,
		Views:            p.Views,
		Authorities:      append([]string{}, p.Authorities...),
		ReferralSplit:    p.ReferralSplit,
		MinViewCount:     p.MinViewCount,
		InteractionCount: p.InteractionCount,
		ViewCount:        p.ViewCount,
		Ended:            p.Ended,
	}
	if p.Ended {
		out.EndedAt = p.EndedAt
		out.ActiveBuckets = p.ActiveBuckets
		out.TotalPaid = amountString(p.TotalPaid)
		out.Dust = amountString(p.Dust)
		out.Refund = amountString(p.Refund)
	}
	return out
}

type payoutResult struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type settlementResult struct {
	receiptResult
	ActiveBuckets uint64         `json:"activeBuckets"`
	PerBucket     string         `json:"perBucket"`
	TotalPaid     string         `json:"totalPaid"`
	Remainder     string         `json:"remainder"`
	Payouts       []payoutResult `json:"payouts"`
}

type registerResult struct {
	receiptResult
	Promotion promotionResult `json:"promotion"`
}

type subscriptionResult struct {
	receiptResult
	ExpiresAt uint64 `json:"expiresAt"`
}

type transferParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type approveParams struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type approveRecurrentParams struct {
	Caller       string `json:"caller"`
	Spender      string `json:"spender"`
	Cap          string `json:"cap"`
	PeriodLength uint64 `json:"periodLength"`
}

type transferFromParams struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type accountParams struct {
	Account string `json:"account"`
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type registerServiceParams struct {
	Caller string `json:"caller"`
	Name   string `json:"name"`
}

type userVerificationParams struct {
	Caller string `json:"caller"`
	User   string `json:"user"`
}

type isVerifiedParams struct {
	Service string `json:"service"`
	User    string `json:"user"`
}

type weightsParams struct {
	Like    uint64 `json:"like"`
	Comment uint64 `json:"comment"`
	Share   uint64 `json:"share"`
	View    uint64 `json:"view"`
}

type promotionRegisterParams struct {
	Caller        string         `json:"caller"`
	ContentID     string         `json:"contentId"`
	StartHeight   uint64         `json:"startHeight"`
	Duration      uint64         `json:"duration"`
	Budget        string         `json:"budget"`
	Likes         bool           `json:"likes"`
	Comments      bool           `json:"comments"`
	Shares        bool           `json:"shares"`
	Views         bool           `json:"views"`
	Authorities   []string       `json:"authorities,omitempty"`
	ReferralSplit uint64         `json:"referralSplit,omitempty"`
	MinViewCount  uint64         `json:"minViewCount,omitempty"`
	Weights       *weightsParams `json:"weights,omitempty"`
}

type promotionBudgetParams struct {
	Caller    string `json:"caller"`
	ContentID string `json:"contentId"`
	Amount    string `json:"amount"`
}

type promotionAuthorityParams struct {
	Caller    string `json:"caller"`
	ContentID string `json:"contentId"`
	Service   string `json:"service"`
}

type promotionInteractionParams struct {
	Caller     string   `json:"caller"`
	ContentID  string   `json:"contentId"`
	Kind       string   `json:"kind"`
	Metadata   string   `json:"metadata,omitempty"`
	CoAccounts []string `json:"coAccounts,omitempty"`
}

type promotionEndParams struct {
	Caller    string `json:"caller"`
	ContentID string `json:"contentId"`
}

type promotionGetParams struct {
	ContentID string `json:"contentId"`
}

type buyContentParams struct {
	Caller    string `json:"caller"`
	ContentID string `json:"contentId"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Referrer  string `json:"referrer,omitempty"`
}

type proposeDelegationParams struct {
	Caller   string `json:"caller"`
	Delegate string `json:"delegate"`
}

type proposeMasterParams struct {
	Caller string `json:"caller"`
	Master string `json:"master"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type offerParams struct {
	Caller string `json:"caller"`
	URI    string `json:"uri"`
	Price  string `json:"price"`
	Period uint64 `json:"period"`
}

type subscribeParams struct {
	Caller string `json:"caller"`
	URI    string `json:"uri"`
}

type renewParams struct {
	Caller     string `json:"caller"`
	URI        string `json:"uri"`
	Subscriber string `json:"subscriber"`
}

type isSubscriberParams struct {
	URI     string `json:"uri"`
	Account string `json:"account"`
}

type mineParams struct {
	Blocks uint64 `json:"blocks"`
}

type eventsListParams struct {
	Type       string `json:"type,omitempty"`
	ContentID  string `json:"contentId,omitempty"`
	FromHeight uint64 `json:"fromHeight,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func parseAccount(field, value string) ([20]byte, *RPCError) {
	addr, err := crypto.ParseAccount(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s", field), Data: err.Error()}
	}
	return addr, nil
}

// parseOptionalAccount returns the zero account for an empty value.
func parseOptionalAccount(field, value string) ([20]byte, *RPCError) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, nil
	}
	return parseAccount(field, value)
}

func parseAmount(field, value string) (*big.Int, *RPCError) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || amount.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s", field), Data: value}
	}
	return amount, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
