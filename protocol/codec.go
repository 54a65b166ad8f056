package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Terminator delimits game messages on the TCP stream. There is no length prefix.
const Terminator byte = 0x00

// DecodeError is returned when a frame or queued payload is not a valid message.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d byte frame: %v", len(e.Frame), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	errMissingPlayerId = errors.New("missing playerId")
	errMissingCode     = errors.New("missing code")
)

// MissingFieldError reports a required key that is absent or null.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

func errMissingField(name string) error {
	return &MissingFieldError{Field: name}
}

// UnknownValueError reports an enum byte outside its defined set.
type UnknownValueError struct {
	Enum  string
	Value uint8
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("unknown %s value %d", e.Enum, e.Value)
}

// EncodeCommand serializes a command and appends the terminator.
func EncodeCommand(cmd Command) ([]byte, error) {
	return encodeFramed(cmd)
}

// EncodeResult serializes a result and appends the terminator.
func EncodeResult(res Result) ([]byte, error) {
	return encodeFramed(res)
}

// commandFrame mirrors Command with the required fields as pointers, so absent keys are detected.
type commandFrame struct {
	Id         *uint32      `json:"id"`
	Code       *string      `json:"code"`
	Message    *string      `json:"message"`
	Parameters []string     `json:"parameters"`
	Targets    []Target     `json:"targets"`
	Viewer     *string      `json:"viewer"`
	Cost       *uint64      `json:"cost"`
	Type       *RequestType `json:"type"`
}

type resultFrame struct {
	Id            *uint32       `json:"id"`
	Status        *ResultStatus `json:"status"`
	Message       *string       `json:"message"`
	TimeRemaining *int64        `json:"timeRemaining"`
	Type          *ResultType   `json:"type"`
}

// DecodeCommand parses a command frame, with or without its terminator.
// id and type are required.
func DecodeCommand(frame []byte) (Command, error) {
	var wire commandFrame
	if err := decodeFramed(frame, &wire); err != nil {
		return Command{}, err
	}

	switch {
	case wire.Id == nil:
		return Command{}, &DecodeError{Frame: frame, Err: errMissingField("id")}
	case wire.Type == nil:
		return Command{}, &DecodeError{Frame: frame, Err: errMissingField("type")}
	}

	return Command{
		Id:         *wire.Id,
		Code:       wire.Code,
		Message:    wire.Message,
		Parameters: wire.Parameters,
		Targets:    wire.Targets,
		Viewer:     wire.Viewer,
		Cost:       wire.Cost,
		Type:       *wire.Type,
	}, nil
}

// DecodeResult parses a result frame, with or without its terminator.
// Every field except message is required.
func DecodeResult(frame []byte) (Result, error) {
	var wire resultFrame
	if err := decodeFramed(frame, &wire); err != nil {
		return Result{}, err
	}

	switch {
	case wire.Id == nil:
		return Result{}, &DecodeError{Frame: frame, Err: errMissingField("id")}
	case wire.Status == nil:
		return Result{}, &DecodeError{Frame: frame, Err: errMissingField("status")}
	case wire.TimeRemaining == nil:
		return Result{}, &DecodeError{Frame: frame, Err: errMissingField("timeRemaining")}
	case wire.Type == nil:
		return Result{}, &DecodeError{Frame: frame, Err: errMissingField("type")}
	}

	return Result{
		Id:            *wire.Id,
		Status:        *wire.Status,
		Message:       wire.Message,
		TimeRemaining: *wire.TimeRemaining,
		Type:          *wire.Type,
	}, nil
}

func EncodeRemoteInbound(msg RemoteInbound) ([]byte, error) {
	return json.Marshal(msg)
}

type remoteInboundFrame struct {
	PlayerId *string `json:"playerId"`
	Code     *string `json:"code"`
}

// DecodeRemoteInbound parses a remote request. Both fields must be present; empty strings are accepted.
func DecodeRemoteInbound(data []byte) (RemoteInbound, error) {
	var wire remoteInboundFrame
	if err := json.Unmarshal(data, &wire); err != nil {
		return RemoteInbound{}, &DecodeError{Frame: data, Err: err}
	}

	if wire.PlayerId == nil {
		return RemoteInbound{}, &DecodeError{Frame: data, Err: errMissingPlayerId}
	}
	if wire.Code == nil {
		return RemoteInbound{}, &DecodeError{Frame: data, Err: errMissingCode}
	}

	return RemoteInbound{PlayerId: *wire.PlayerId, Code: *wire.Code}, nil
}

func EncodeRemoteOutbound(msg RemoteOutbound) ([]byte, error) {
	return json.Marshal(msg)
}

func DecodeRemoteOutbound(data []byte) (RemoteOutbound, error) {
	var msg RemoteOutbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, &DecodeError{Frame: data, Err: err}
	}
	return msg, nil
}

// StripTerminator removes terminator bytes surrounding a frame.
func StripTerminator(frame []byte) []byte {
	return bytes.Trim(frame, string([]byte{Terminator}))
}

func encodeFramed(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, Terminator), nil
}

func decodeFramed(frame []byte, v any) error {
	payload := StripTerminator(frame)
	if len(payload) == 0 {
		return &DecodeError{Frame: frame, Err: errors.New("empty frame")}
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return &DecodeError{Frame: frame, Err: err}
	}
	return nil
}
