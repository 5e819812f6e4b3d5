package rpc

import (
	"context"
	"net/http"

	"mediachain/crypto"
)

func (s *Server) handleTokenTransfer(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params transferParams
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
	to, rpcErr := parseAccount("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.Transfer(ctx, caller, to, amount)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleTokenApprove(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params approveParams
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
	spender, rpcErr := parseAccount("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.Approve(ctx, caller, spender, amount)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleTokenApproveRecurrent(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params approveRecurrentParams
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
	spender, rpcErr := parseAccount("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	limit, rpcErr := parseAmount("cap", params.Cap)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.ApproveRecurrent(ctx, caller, spender, limit, params.PeriodLength)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleTokenTransferFrom(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params transferFromParams
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
	from, rpcErr := parseAccount("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAccount("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.TransferFrom(ctx, caller, from, to, amount)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleTokenBalanceOf(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params accountParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	account, rpcErr := parseAccount("account", params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.node.BalanceOf(account)
	if err != nil {
		return nil, operationError(err)
	}
	return balanceResult{Account: crypto.FormatAccount(account), Balance: amountString(balance)}, nil
}

func (s *Server) handleTokenAllowance(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params allowanceParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := parseAccount("owner", params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAccount("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	single, recurrent, err := s.node.Allowance(owner, spender)
	if err != nil {
		return nil, operationError(err)
	}
	out := allowanceResult{
		Owner:     crypto.FormatAccount(owner),
		Spender:   crypto.FormatAccount(spender),
		Allowance: amountString(single),
	}
	if recurrent != nil {
		out.Recurrent = &recurrentResult{
			Cap:           amountString(recurrent.Cap),
			PeriodLength:  recurrent.PeriodLength,
			SpentInPeriod: amountString(recurrent.SpentInPeriod),
			PeriodStart:   recurrent.PeriodStart,
			Remaining:     amountString(recurrent.Remaining(s.node.Height())),
		}
	}
	return out, nil
}

func (s *Server) handleTokenTotalSupply(context.Context, *http.Request, *RPCRequest) (interface{}, *RPCError) {
	supply, err := s.node.TotalSupply()
	if err != nil {
		return nil, operationError(err)
	}
	return map[string]string{"totalSupply": amountString(supply)}, nil
}
