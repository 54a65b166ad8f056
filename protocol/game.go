package protocol

import (
	"encoding/json"
	"fmt"
)

// RequestType is the `type` byte of a command sent to the game.
type RequestType uint8

const (
	RequestTypeTest      RequestType = 0x00
	RequestTypeStart     RequestType = 0x01
	RequestTypeStop      RequestType = 0x02
	RequestTypeLogin     RequestType = 0xF0
	RequestTypeKeepAlive RequestType = 0xFF
)

func (t RequestType) String() string {
	switch t {
	case RequestTypeTest:
		return "Test"
	case RequestTypeStart:
		return "Start"
	case RequestTypeStop:
		return "Stop"
	case RequestTypeLogin:
		return "Login"
	case RequestTypeKeepAlive:
		return "KeepAlive"
	default:
		return fmt.Sprintf("RequestType(0x%02X)", uint8(t))
	}
}

func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeTest, RequestTypeStart, RequestTypeStop, RequestTypeLogin, RequestTypeKeepAlive:
		return true
	}
	return false
}

func (t *RequestType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnumByte(data)
	if err != nil {
		return err
	}
	if !RequestType(v).Valid() {
		return &UnknownValueError{Enum: "request type", Value: v}
	}
	*t = RequestType(v)
	return nil
}

// ResultStatus is the `status` byte of a result reported by the game.
type ResultStatus uint8

const (
	ResultStatusSuccess ResultStatus = iota
	ResultStatusFailure
	ResultStatusUnavailable
	ResultStatusRetry
	ResultStatusQueue
	ResultStatusRunning
	ResultStatusPaused
	ResultStatusResumed
	ResultStatusFinished
	ResultStatusNotReady
)

var resultStatusNames = [...]string{
	"Success",
	"Failure",
	"Unavailable",
	"Retry",
	"Queue",
	"Running",
	"Paused",
	"Resumed",
	"Finished",
	"NotReady",
}

func (s ResultStatus) String() string {
	if int(s) < len(resultStatusNames) {
		return resultStatusNames[s]
	}
	return fmt.Sprintf("ResultStatus(%d)", uint8(s))
}

func (s ResultStatus) Valid() bool {
	return int(s) < len(resultStatusNames)
}

func (s *ResultStatus) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnumByte(data)
	if err != nil {
		return err
	}
	if !ResultStatus(v).Valid() {
		return &UnknownValueError{Enum: "result status", Value: v}
	}
	*s = ResultStatus(v)
	return nil
}

// ResultType is the `type` byte of a result reported by the game.
type ResultType uint8

const (
	ResultTypeEffectRequest ResultType = 0x00
	ResultTypeLogin         ResultType = 0xF0
	ResultTypeKeepAlive     ResultType = 0xFF
)

func (t ResultType) String() string {
	switch t {
	case ResultTypeEffectRequest:
		return "EffectRequest"
	case ResultTypeLogin:
		return "Login"
	case ResultTypeKeepAlive:
		return "KeepAlive"
	default:
		return fmt.Sprintf("ResultType(0x%02X)", uint8(t))
	}
}

func (t ResultType) Valid() bool {
	switch t {
	case ResultTypeEffectRequest, ResultTypeLogin, ResultTypeKeepAlive:
		return true
	}
	return false
}

func (t *ResultType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnumByte(data)
	if err != nil {
		return err
	}
	if !ResultType(v).Valid() {
		return &UnknownValueError{Enum: "result type", Value: v}
	}
	*t = ResultType(v)
	return nil
}

// unmarshalEnumByte reads a numeric enum written as a bare JSON number.
func unmarshalEnumByte(data []byte) (uint8, error) {
	var v uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, err
	}
	return v, nil
}

type Target struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Command is an effect request sent to the game.
// Nil pointers and nil slices are written as JSON null, empty slices as [].
type Command struct {
	Id         uint32      `json:"id"`
	Code       *string     `json:"code"`
	Message    *string     `json:"message"`
	Parameters []string    `json:"parameters"`
	Targets    []Target    `json:"targets"`
	Viewer     *string     `json:"viewer"`
	Cost       *uint64     `json:"cost"`
	Type       RequestType `json:"type"`
}

// NewStartCommand builds the command issued for an effect coming from the remote side:
// a Start request with no parameters and a single target carrying only the player id.
func NewStartCommand(id uint32, playerId string, code string) Command {
	return Command{
		Id:         id,
		Code:       &code,
		Parameters: []string{},
		Targets: []Target{
			{Id: playerId},
		},
		Type: RequestTypeStart,
	}
}

// FirstTarget returns the first target of the command, if there is one.
func (c *Command) FirstTarget() (Target, bool) {
	if len(c.Targets) == 0 {
		return Target{}, false
	}
	return c.Targets[0], true
}

// Result is a reply from the game to a previously issued command
// (or an unsolicited KeepAlive / Login notification).
type Result struct {
	Id            uint32       `json:"id"`
	Status        ResultStatus `json:"status"`
	Message       *string      `json:"message"`
	TimeRemaining int64        `json:"timeRemaining"`
	Type          ResultType   `json:"type"`
}
