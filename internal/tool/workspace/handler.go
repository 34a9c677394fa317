package workspace

import (
	"context"

	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/mitchellh/mapstructure"
)

// validator is implemented by request types that check their own fields.
type validator interface {
	Validate() error
}

// handler runs one workspace tool against decoded arguments.
type handler interface {
	descriptor() tool.Descriptor
	call(ctx context.Context, args map[string]any) (any, error)
}

// executor is the typed body of a tool.
type executor[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// typedHandler decodes arguments into Req, validates them, and runs exec.
type typedHandler[Req, Resp any] struct {
	desc tool.Descriptor
	exec executor[Req, Resp]
}

func newHandler[Req, Resp any](desc tool.Descriptor, exec executor[Req, Resp]) *typedHandler[Req, Resp] {
	return &typedHandler[Req, Resp]{desc: desc, exec: exec}
}

func (h *typedHandler[Req, Resp]) descriptor() tool.Descriptor {
	return h.desc
}

func (h *typedHandler[Req, Resp]) call(ctx context.Context, args map[string]any) (any, error) {
	var req Req

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &req,
		TagName:     "json",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(args); err != nil {
		return nil, &ArgumentsError{Tool: h.desc.Name, Cause: err}
	}

	if v, ok := any(&req).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, &ArgumentsError{Tool: h.desc.Name, Cause: err}
		}
	}

	return h.exec(ctx, req)
}
