package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sellerops/spbridge/observe"
	"github.com/sellerops/spbridge/spapi"
	"github.com/sellerops/spbridge/tools"
)

// RPC method names.
const (
	MethodToolsList = "tools/list"
	MethodToolsCall = "tools/call"
)

// rpcRequest is the envelope for POST /rpc.
type rpcRequest struct {
	Method string    `json:"method"`
	Params rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TextContent is one text block in a tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// callResult is the response envelope for tools/call.
type callResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError"`
}

// listResult is the response envelope for tools/list.
type listResult struct {
	Tools []tools.Definition `json:"tools"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Method {
	case MethodToolsList:
		writeJSON(w, http.StatusOK, listResult{Tools: s.registry.List()})
	case MethodToolsCall:
		s.handleToolCall(w, r, req.Params)
	default:
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request, params rpcParams) {
	if params.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "params.name is required")
		return
	}

	text, err := s.registry.Call(r.Context(), params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn(r.Context(), "tool call returned error",
			observe.F("tool", params.Name),
			observe.F("error", err.Error()))
		writeJSON(w, http.StatusOK, callResult{
			Content: []TextContent{{Type: "text", Text: toolErrorText(params.Name, err)}},
			IsError: true,
		})
		return
	}

	writeJSON(w, http.StatusOK, callResult{
		Content: []TextContent{{Type: "text", Text: text}},
	})
}

// toolErrorText renders a tool failure for the caller without leaking
// internals.
func toolErrorText(name string, err error) string {
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return fmt.Sprintf("Unknown tool: %s", name)
	case errors.Is(err, tools.ErrMissingArgument):
		return fmt.Sprintf("Error: %v", err)
	case errors.Is(err, spapi.ErrNotFound):
		return "Error: product not found"
	default:
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
