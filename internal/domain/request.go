package domain

import "fmt"

// RequestKind tags the seven request variants on the wire.
type RequestKind string

const (
	KindTool      RequestKind = "tool"
	KindFileRead  RequestKind = "file_read"
	KindFileWrite RequestKind = "file_write"
	KindBash      RequestKind = "bash"
	KindMCP       RequestKind = "mcp"
	KindNetwork   RequestKind = "network"
	KindModel     RequestKind = "model"
)

// RequestKinds lists every known kind.
var RequestKinds = []RequestKind{
	KindTool, KindFileRead, KindFileWrite, KindBash, KindMCP, KindNetwork, KindModel,
}

// Request is one "may I do X" question. The set of implementations is closed.
type Request interface {
	Kind() RequestKind
	Resource() string
	Envelope() Envelope
	isRequest()
}

// Envelope is the wire form of a Request.
type Envelope struct {
	Type     RequestKind    `json:"type" yaml:"type"`
	Resource string         `json:"resource" yaml:"resource"`
	Action   string         `json:"action,omitempty" yaml:"action,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Request converts the envelope into its typed variant.
func (e Envelope) Request() (Request, error) {
	base := RequestBase{Action: e.Action, Metadata: e.Metadata}
	switch e.Type {
	case KindTool:
		return ToolRequest{Name: e.Resource, RequestBase: base}, nil
	case KindFileRead:
		return FileReadRequest{Path: e.Resource, RequestBase: base}, nil
	case KindFileWrite:
		return FileWriteRequest{Path: e.Resource, RequestBase: base}, nil
	case KindBash:
		return BashRequest{Command: e.Resource, RequestBase: base}, nil
	case KindMCP:
		return MCPRequest{Spec: e.Resource, RequestBase: base}, nil
	case KindNetwork:
		return NetworkRequest{URL: e.Resource, RequestBase: base}, nil
	case KindModel:
		return ModelRequest{Tier: ModelTier(e.Resource), RequestBase: base}, nil
	}
	return nil, fmt.Errorf("unknown request type: %q", e.Type)
}

// RequestBase holds the fields shared by every request variant.
type RequestBase struct {
	Action   string
	Metadata map[string]any
}

func (b RequestBase) envelope(kind RequestKind, resource string) Envelope {
	return Envelope{Type: kind, Resource: resource, Action: b.Action, Metadata: b.Metadata}
}

// ToolRequest asks to invoke a built-in tool such as "Read" or "Write".
type ToolRequest struct {
	Name string
	RequestBase
}

func (r ToolRequest) Kind() RequestKind  { return KindTool }
func (r ToolRequest) Resource() string   { return r.Name }
func (r ToolRequest) Envelope() Envelope { return r.envelope(KindTool, r.Name) }
func (ToolRequest) isRequest()           {}

// FileReadRequest asks to read a path.
type FileReadRequest struct {
	Path string
	RequestBase
}

func (r FileReadRequest) Kind() RequestKind  { return KindFileRead }
func (r FileReadRequest) Resource() string   { return r.Path }
func (r FileReadRequest) Envelope() Envelope { return r.envelope(KindFileRead, r.Path) }
func (FileReadRequest) isRequest()           {}

// FileWriteRequest asks to write a path.
type FileWriteRequest struct {
	Path string
	RequestBase
}

func (r FileWriteRequest) Kind() RequestKind  { return KindFileWrite }
func (r FileWriteRequest) Resource() string   { return r.Path }
func (r FileWriteRequest) Envelope() Envelope { return r.envelope(KindFileWrite, r.Path) }
func (FileWriteRequest) isRequest()           {}

// BashRequest asks to run a shell command line.
type BashRequest struct {
	Command string
	RequestBase
}

func (r BashRequest) Kind() RequestKind  { return KindBash }
func (r BashRequest) Resource() string   { return r.Command }
func (r BashRequest) Envelope() Envelope { return r.envelope(KindBash, r.Command) }
func (BashRequest) isRequest()           {}

// MCPRequest asks to call an external "server:tool".
type MCPRequest struct {
	Spec string
	RequestBase
}

func (r MCPRequest) Kind() RequestKind  { return KindMCP }
func (r MCPRequest) Resource() string   { return r.Spec }
func (r MCPRequest) Envelope() Envelope { return r.envelope(KindMCP, r.Spec) }
func (MCPRequest) isRequest()           {}

// NetworkRequest asks to reach a URL or bare hostname.
type NetworkRequest struct {
	URL string
	RequestBase
}

func (r NetworkRequest) Kind() RequestKind  { return KindNetwork }
func (r NetworkRequest) Resource() string   { return r.URL }
func (r NetworkRequest) Envelope() Envelope { return r.envelope(KindNetwork, r.URL) }
func (NetworkRequest) isRequest()           {}

// ModelRequest asks to use a model tier.
type ModelRequest struct {
	Tier ModelTier
	RequestBase
}

func (r ModelRequest) Kind() RequestKind  { return KindModel }
func (r ModelRequest) Resource() string   { return string(r.Tier) }
func (r ModelRequest) Envelope() Envelope { return r.envelope(KindModel, string(r.Tier)) }
func (ModelRequest) isRequest()           {}
