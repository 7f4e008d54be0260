package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/transport"
)

// JSONRPCAdapter drives the length-prefixed JSON-RPC projector
// protocol: each message is a 4-byte big-endian size prefix followed
// by a JSON-RPC 2.0 envelope. Each call is its own session with its
// own sequential request id.
type JSONRPCAdapter struct{}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Result  map[string]any `json:"result,omitempty"`
	Error   *rpcError      `json:"error,omitempty"`
}

const (
	jsonrpcMethodPowerOn  = "power.on"
	jsonrpcMethodPowerOff = "power.off"
	jsonrpcMethodQuery    = "power.query"
)

func (JSONRPCAdapter) PowerOn(ctx context.Context, d model.Device) (model.Outcome, error) {
	return jsonrpcSetPower(ctx, d, jsonrpcMethodPowerOn, "on")
}

func (JSONRPCAdapter) PowerOff(ctx context.Context, d model.Device) (model.Outcome, error) {
	return jsonrpcSetPower(ctx, d, jsonrpcMethodPowerOff, "off")
}

func (JSONRPCAdapter) QueryPower(ctx context.Context, d model.Device) (PowerState, model.Outcome, error) {
	resp, outcome, err := jsonrpcCall(ctx, d, jsonrpcMethodQuery, nil)
	if err != nil {
		return PowerUnknown, outcome, err
	}

	state, _ := resp.Result["state"].(string)
	switch state {
	case "on":
		return PowerOn, model.OutcomeSuccess, nil
	case "off":
		return PowerOff, model.OutcomeSuccess, nil
	default:
		return PowerUnknown, model.OutcomeProtocolError, fmt.Errorf("device %s: unexpected query state %q", d.ID, state)
	}
}

func jsonrpcSetPower(ctx context.Context, d model.Device, method, wantState string) (model.Outcome, error) {
	resp, outcome, err := jsonrpcCall(ctx, d, method, map[string]any{"state": wantState})
	if err != nil {
		return outcome, err
	}

	state, _ := resp.Result["state"].(string)
	if state != wantState {
		return model.OutcomeProtocolError, fmt.Errorf("device %s: did not confirm requested state: got %q want %q", d.ID, state, wantState)
	}
	return model.OutcomeSuccess, nil
}

func jsonrpcCall(ctx context.Context, d model.Device, method string, params map[string]any) (*rpcResponse, model.Outcome, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", d.Host, d.Port))
	if err != nil {
		return nil, classifyDialErr(err), fmt.Errorf("dialing %s: %w", d.ID, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	framer := transport.NewFramer(conn)

	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, model.OutcomeProtocolError, fmt.Errorf("encoding request for %s: %w", d.ID, err)
	}
	if err := framer.WriteFrame(payload); err != nil {
		return nil, classifyIOErr(err), fmt.Errorf("writing request frame to %s: %w", d.ID, err)
	}

	respBytes, err := framer.ReadFrame()
	if err != nil {
		return nil, classifyIOErr(err), fmt.Errorf("reading response frame from %s: %w", d.ID, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, model.OutcomeProtocolError, fmt.Errorf("decoding response from %s: %w", d.ID, err)
	}
	if resp.Error != nil {
		return nil, model.OutcomeProtocolError, fmt.Errorf("device %s returned rpc error %d: %s", d.ID, resp.Error.Code, resp.Error.Message)
	}
	return &resp, model.OutcomeSuccess, nil
}
