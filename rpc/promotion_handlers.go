package rpc

import (
	"context"
	"fmt"
	"net/http"

	coreerrors "mediachain/core/errors"
	"mediachain/crypto"
	"mediachain/native/promotion"
)

func (s *Server) handlePromotionRegister(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params promotionRegisterParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	budget, rpcErr := parseAmount("budget", params.Budget)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spec := promotion.Params{
		ContentID:     params.ContentID,
		StartHeight:   params.StartHeight,
		Duration:      params.Duration,
		Budget:        budget,
		Likes:         params.Likes,
		Comments:      params.Comments,
		Shares:        params.Shares,
		Views:         params.Views,
		Authorities:   params.Authorities,
		ReferralSplit: params.ReferralSplit,
		MinViewCount:  params.MinViewCount,
	}
	if w := params.Weights; w != nil {
		spec.Weights = &promotion.Weights{Like: w.Like, Comment: w.Comment, Share: w.Share, View: w.View}
	}
	p, receipt, err := s.node.RegisterPromotion(ctx, caller, spec)
	if err != nil {
		return nil, operationError(err)
	}
	return registerResult{receiptResult: receiptFrom(receipt), Promotion: promotionFrom(p, receipt.Height)}, nil
}

func (s *Server) handlePromotionAddBudget(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params promotionBudgetParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.AddBudget(ctx, caller, params.ContentID, amount)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handlePromotionAddAuthority(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params promotionAuthorityParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.AddVerificationAuthority(ctx, caller, params.ContentID, params.Service)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handlePromotionRecordInteraction(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params promotionInteractionParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	kind, err := promotion.ParseInteractionType(params.Kind)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid kind", Data: err.Error()}
	}
	coAccounts := make([][20]byte, 0, len(params.CoAccounts))
	for _, raw := range params.CoAccounts {
		addr, rpcErr := parseAccount("coAccounts", raw)
		if rpcErr != nil {
			return nil, rpcErr
		}
		coAccounts = append(coAccounts, addr)
	}
	receipt, err := s.node.RecordInteraction(ctx, caller, params.ContentID, kind, params.Metadata, coAccounts)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handlePromotionEnd(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params promotionEndParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	settlement, receipt, err := s.node.EndPromotion(ctx, caller, params.ContentID)
	if err != nil {
		return nil, operationError(err)
	}
	out := settlementResult{
		receiptResult: receiptFrom(receipt),
		ActiveBuckets: settlement.ActiveBuckets,
		PerBucket:     amountString(settlement.PerBucket),
		TotalPaid:     amountString(settlement.TotalPaid),
		Remainder:     amountString(settlement.Remainder),
		Payouts:       make([]payoutResult, 0, len(settlement.Payouts)),
	}
	for _, payout := range settlement.Payouts {
		out.Payouts = append(out.Payouts, payoutResult{Account: crypto.FormatAccount(payout.Account), Amount: amountString(payout.Amount)})
	}
	return out, nil
}

func (s *Server) handlePromotionGet(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params promotionGetParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	p, ok, err := s.node.PromotionGet(params.ContentID)
	if err != nil {
		return nil, operationError(err)
	}
	if !ok {
		return nil, operationError(fmt.Errorf("%w: %s", coreerrors.ErrUnknownCampaign, params.ContentID))
	}
	return promotionFrom(p, s.node.Height()), nil
}

func (s *Server) handlePromotionList(context.Context, *http.Request, *RPCRequest) (interface{}, *RPCError) {
	ids, err := s.node.Promotions()
	if err != nil {
		return nil, operationError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return map[string][]string{"contentIds": ids}, nil
}

func (s *Server) handlePromotionBuyContent(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params buyContentParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	recipient, rpcErr := parseAccount("recipient", params.Recipient)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	referrer, rpcErr := parseOptionalAccount("referrer", params.Referrer)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.BuyContent(ctx, caller, params.ContentID, recipient, amount, referrer)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleDelegationProposeDelegation(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params proposeDelegationParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	delegate, rpcErr := parseAccount("delegate", params.Delegate)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.ProposeDelegation(ctx, caller, delegate)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleDelegationProposeMaster(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params proposeMasterParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	master, rpcErr := parseAccount("master", params.Master)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.ProposeMaster(ctx, caller, master)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleDelegationWithdrawDelegation(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params proposeDelegationParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	delegate, rpcErr := parseAccount("delegate", params.Delegate)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.WithdrawDelegation(ctx, caller, delegate)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleDelegationWithdrawMaster(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params callerParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.WithdrawMaster(ctx, caller)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleDelegationMasterOf(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params accountParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	delegate, rpcErr := parseAccount("account", params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	master, ok, err := s.node.MasterOf(delegate)
	if err != nil {
		return nil, operationError(err)
	}
	out := map[string]interface{}{"active": ok}
	if ok {
		out["master"] = crypto.FormatAccount(master)
	}
	return out, nil
}

func (s *Server) handleSubscriptionRegisterOffer(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params offerParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	price, rpcErr := parseAmount("price", params.Price)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.RegisterSubscriptionOffer(ctx, caller, params.URI, price, params.Period)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleSubscriptionSubscribe(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params subscribeParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	expires, receipt, err := s.node.Subscribe(ctx, caller, params.URI)
	if err != nil {
		return nil, operationError(err)
	}
	return subscriptionResult{receiptResult: receiptFrom(receipt), ExpiresAt: expires}, nil
}

func (s *Server) handleSubscriptionRenew(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params renewParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return nil, rpcErr
	}
	subscriber, rpcErr := parseAccount("subscriber", params.Subscriber)
	if rpcErr != nil {
		return nil, rpcErr
	}
	expires, receipt, err := s.node.RenewSubscription(ctx, caller, params.URI, subscriber)
	if err != nil {
		return nil, operationError(err)
	}
	return subscriptionResult{receiptResult: receiptFrom(receipt), ExpiresAt: expires}, nil
}

func (s *Server) handleSubscriptionIsSubscriber(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params isSubscriberParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	account, rpcErr := parseAccount("account", params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	ok, err := s.node.IsSubscriber(params.URI, account)
	if err != nil {
		return nil, operationError(err)
	}
	return map[string]bool{"subscriber": ok}, nil
}
