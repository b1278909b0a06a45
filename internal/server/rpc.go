package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/copyleftdev/tinyfit/internal/errors"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

// rpcMethods maps JSON-RPC method names to operations.
func (s *Server) rpcMethods() map[string]func(params) (interface{}, error) {
	return map[string]func(params) (interface{}, error){
		"polyfit.fit":     s.fit,
		"polyfit.swarm":   s.swarm,
		"polyfit.compare": s.compare,
	}
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)

	var request rpcRequest
	if err := s.decode(w, r, &request); err != nil {
		s.respondWithError(w, errors.RPCParseError, "Parse error", nil, nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, errors.RPCInvalidRequest, "Invalid Request", request.ID, nil)
		return
	}

	method, ok := s.rpcMethods()[request.Method]
	if !ok {
		err := errors.New("method not found").
			WithOperation(request.Method).
			WithKind(errors.KindNotFound)
		s.respondWithError(w, errors.RPCCode(err), "Method not found", request.ID, request.Method)
		return
	}

	p, err := rpcParams(request.Params)
	if err != nil {
		s.respondWithError(w, errors.RPCInvalidParams, "Invalid params", request.ID, err.Error())
		return
	}

	result, err := s.call(request.Method, method, p)
	if err != nil {
		code := errors.RPCCode(err)
		message := err.Error()
		if code == errors.RPCInternalError {
			fields := map[string]interface{}{
				"method": request.Method,
				"error":  err.Error(),
			}
			var e *errors.Error
			if errors.As(err, &e) {
				fields["stack"] = e.StackTrace()
			}
			logger.Error("JSON-RPC method failed", fields)
			message = "Internal error"
		}
		s.respondWithError(w, code, message, request.ID, errors.Classify(err))
		return
	}

	s.respond(w, rpcResponse{JSONRPC: "2.0", ID: request.ID, Result: result}, logger)
}

// rpcParams accepts either a params object or an array holding one.
func rpcParams(raw json.RawMessage) (params, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return params{}, nil
	}

	if raw[0] == '[' {
		var list []params
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		if len(list) != 1 {
			return nil, invalidParam("expected exactly one params object, got %d", len(list))
		}
		return list[0], nil
	}

	var p params
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}, data interface{}) {
	s.logger.Debug("JSON-RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})
	s.respond(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message, Data: data},
	}, s.logger)
}

func (s *Server) respond(w http.ResponseWriter, resp rpcResponse, logger Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logEncodeFailure(logger, "rpc", err)
	}
}
