package rpc

import (
	"context"
	"net/http"
)

func (s *Server) handleIdentityRegisterService(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params registerServiceParams
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
	receipt, err := s.node.RegisterService(ctx, caller, params.Name)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleIdentityAddUserVerification(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	caller, user, rpcErr := s.userVerificationParams(ctx, req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.AddUserVerification(ctx, caller, user)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) handleIdentityRevokeUserVerification(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	caller, user, rpcErr := s.userVerificationParams(ctx, req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.RevokeUserVerification(ctx, caller, user)
	if err != nil {
		return nil, operationError(err)
	}
	return receiptFrom(receipt), nil
}

func (s *Server) userVerificationParams(ctx context.Context, req *RPCRequest) ([20]byte, [20]byte, *RPCError) {
	var params userVerificationParams
	if err := decodeParams(req.Params, &params); err != nil {
		return [20]byte{}, [20]byte{}, err
	}
	caller, rpcErr := parseAccount("caller", params.Caller)
	if rpcErr != nil {
		return [20]byte{}, [20]byte{}, rpcErr
	}
	if rpcErr := authorizeCaller(ctx, caller); rpcErr != nil {
		return [20]byte{}, [20]byte{}, rpcErr
	}
	user, rpcErr := parseAccount("user", params.User)
	if rpcErr != nil {
		return [20]byte{}, [20]byte{}, rpcErr
	}
	return caller, user, nil
}

func (s *Server) handleIdentityIsVerified(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params isVerifiedParams
	if err := decodeParams(req.Params, &params); err != nil {
		return nil, err
	}
	user, rpcErr := parseAccount("user", params.User)
	if rpcErr != nil {
		return nil, rpcErr
	}
	ok, err := s.node.IsVerified(params.Service, user)
	if err != nil {
		return nil, operationError(err)
	}
	return map[string]bool{"verified": ok}, nil
}
