package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payloads are encoded as JSON inside the frame body. This keeps the
// self-describing-payload contract of spec.md §4.1 (the tag already says
// which struct to expect) while staying easy to extend with new optional
// fields without a version bump, matching the teacher's use of
// encoding/json for its own control-plane metadata (session.metadata.json).

// ClientID is assigned by the daemon when it accepts a control connection
// (control.Server.Serve), monotonic per daemon.
type ClientID uint64

// SessionID is a UUID string, see internal/session.
type SessionID string

type Attach struct {
	SessionID SessionID `json:"session_id"`
	Cols      uint16    `json:"cols"`
	Rows      uint16    `json:"rows"`
}

type Attached struct {
	ClientID   ClientID `json:"client_id"`
	RegionName string   `json:"region_name"`
	Cols       uint16   `json:"cols"`
	Rows       uint16   `json:"rows"`
}

type Detach struct{}

type Input struct {
	Bytes []byte `json:"bytes"`
}

type Resize struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

type SessionCreate struct {
	Name string `json:"name"`
}

type SessionCreated struct {
	ID SessionID `json:"id"`
}

type SessionList struct{}

type SessionInfo struct {
	ID           SessionID `json:"id"`
	Name         string    `json:"name"`
	Created      time.Time `json:"created"`
	LastAttached time.Time `json:"last_attached"`
	Tags         []string  `json:"tags,omitempty"`
	Attached     int       `json:"attached"`
	Exited       bool      `json:"exited"`
}

type SessionListReply struct {
	Sessions []SessionInfo `json:"sessions"`
}

type SessionDelete struct {
	ID SessionID `json:"id"`
}

type SessionRename struct {
	ID   SessionID `json:"id"`
	Name string    `json:"name"`
}

type Ping struct {
	T int64 `json:"t"`
}

type Pong struct {
	T int64 `json:"t"`
}

// ErrorCode enumerates stable error codes returned in an Error payload.
type ErrorCode string

const (
	ErrCodeSessionBusy    ErrorCode = "SessionBusy"
	ErrCodeNotFound       ErrorCode = "NotFound"
	ErrCodeNameTaken      ErrorCode = "NameTaken"
	ErrCodeBadFrame       ErrorCode = "BadFrame"
	ErrCodeUnknownTag     ErrorCode = "UnknownTag"
	ErrCodeVersionMismatch ErrorCode = "VersionMismatch"
	ErrCodeInternal       ErrorCode = "Internal"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Encode marshals a payload to the bytes carried after the tag in a frame.
func Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Decode unmarshals a frame payload into v, the struct matching the frame's
// Tag, as allocated by NewForTag below.
func Decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}

// NewForTag allocates the zero value of the payload type associated with
// tag, or an error for unknown tags (protocol violation, spec.md §7).
func NewForTag(tag Tag) (any, error) {
	switch tag {
	case TagAttach:
		return &Attach{}, nil
	case TagAttached:
		return &Attached{}, nil
	case TagDetach:
		return &Detach{}, nil
	case TagInput:
		return &Input{}, nil
	case TagResize:
		return &Resize{}, nil
	case TagSessionCreate:
		return &SessionCreate{}, nil
	case TagSessionCreated:
		return &SessionCreated{}, nil
	case TagSessionList:
		return &SessionList{}, nil
	case TagSessionListReply:
		return &SessionListReply{}, nil
	case TagSessionDelete:
		return &SessionDelete{}, nil
	case TagSessionRename:
		return &SessionRename{}, nil
	case TagPing:
		return &Ping{}, nil
	case TagPong:
		return &Pong{}, nil
	case TagError:
		return &Error{}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown tag %d", tag)
	}
}
