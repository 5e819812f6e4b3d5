package rpc

import (
	"context"
	"net/http"
	"strings"

	"mediachain/core/types"
	"mediachain/indexer"
)

func (s *Server) handleChainHeight(context.Context, *http.Request, *RPCRequest) (interface{}, *RPCError) {
	return map[string]uint64{"height": s.node.Height()}, nil
}

func (s *Server) handleChainMine(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if rpcErr := requireOperator(ctx); rpcErr != nil {
		return nil, rpcErr
	}
	var params mineParams
	if len(req.Params) > 0 {
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
	}
	height, err := s.node.Mine(ctx, params.Blocks)
	if err != nil {
		return nil, operationError(err)
	}
	return map[string]uint64{"height": height}, nil
}

func (s *Server) handleEventsList(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if s.events == nil {
		return nil, &RPCError{Code: codeServerError, Message: "event index not configured"}
	}
	var params eventsListParams
	if len(req.Params) > 0 {
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
	}
	records, err := s.events.List(ctx, indexer.Filter{
		Type:       strings.TrimSpace(params.Type),
		ContentID:  strings.TrimSpace(params.ContentID),
		FromHeight: params.FromHeight,
		Limit:      params.Limit,
	})
	if err != nil {
		s.logger.Error("events_list failed", "error", err)
		return nil, &RPCError{Code: codeServerError, Message: "event index unavailable"}
	}
	if records == nil {
		records = []types.EventRecord{}
	}
	return map[string][]types.EventRecord{"events": records}, nil
}
