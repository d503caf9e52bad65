package server

import (
	"context"

	mcperrors "github.com/ajitpratap0/napkin-mcp-go/pkg/errors"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/protocol"
)

// ResourceProvider serves read-only resources. ReadResource reports an
// unknown or forbidden URI with errors.ResourceNotFound or
// errors.InvalidParams.
type ResourceProvider interface {
	ListResources(ctx context.Context) ([]protocol.Resource, error)
	ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error)
}

// WithResources enables resources/list and resources/read backed by p
func WithResources(p ResourceProvider) ServerOption {
	return func(s *Server) {
		s.resources = p
	}
}

func (s *Server) handleListResources(ctx context.Context, params interface{}) (interface{}, error) {
	var listParams protocol.ListResourcesParams
	if err := decodeParams(params, &listParams); err != nil {
		return nil, err
	}

	resources, err := s.resources.ListResources(ctx)
	if err != nil {
		return nil, mcperrors.InternalError("resources/list", err)
	}
	if resources == nil {
		resources = []protocol.Resource{}
	}
	return &protocol.ListResourcesResult{Resources: resources}, nil
}

func (s *Server) handleReadResource(ctx context.Context, params interface{}) (interface{}, error) {
	var readParams protocol.ReadResourceParams
	if err := decodeParams(params, &readParams); err != nil {
		return nil, err
	}
	if readParams.URI == "" {
		return nil, mcperrors.InvalidParams("uri is required")
	}

	contents, err := s.resources.ReadResource(ctx, readParams.URI)
	if err != nil {
		var rpcErr *mcperrors.RPCError
		if mcperrors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		return nil, mcperrors.InternalError("resources/read", err)
	}
	return &protocol.ReadResourceResult{Contents: contents}, nil
}
