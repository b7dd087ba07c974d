package plantilla

import (
	"context"
	"time"

	"github.com/hazyhaar/plantilla/kit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the plantilla display actions as MCP tools. Every
// tool acts on s and answers with the resulting article as Markdown.
func (c *Client) RegisterMCP(srv *mcp.Server, s *Session) {
	c.registerHome(srv, s)
	c.registerAcercaDe(srv, s)
	c.registerListarPersonas(srv, s)
	c.registerListarUna(srv, s)
	c.registerMostrarUltima(srv, s)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type noArgs struct{}

// register wraps endpoint with call logging and a per-call trace id before
// handing it to the MCP server.
func (c *Client) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint,
	decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	traced := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		res, err := decode(req)
		if err != nil {
			return nil, err
		}
		res.EnrichCtx = withTrace
		return res, nil
	}
	kit.RegisterMCPTool(srv, tool, kit.Chain(c.logCall(tool.Name))(endpoint), traced)
}

// withTrace gives each tool call its own trace id, forwarded to the gateway
// as X-Trace-ID.
func withTrace(ctx context.Context) context.Context {
	if kit.GetTraceID(ctx) != "" {
		return ctx
	}
	return kit.WithTraceID(ctx, kit.NewTraceID())
}

func (c *Client) logCall(tool string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			c.logger.Debug("plantilla: tool call",
				"tool", tool, "transport", kit.GetTransport(ctx), "trace_id", kit.GetTraceID(ctx),
				"duration", time.Since(start), "error", err)
			return resp, err
		}
	}
}

// articleEndpoint adapts a display action to a kit.Endpoint returning
// Markdown.
func articleEndpoint[T any](action func(ctx context.Context, req *T) (Article, error)) kit.Endpoint {
	return func(ctx context.Context, r any) (any, error) {
		a, err := action(ctx, r.(*T))
		if err != nil {
			return nil, err
		}
		return Markdown(a)
	}
}

func (c *Client) registerHome(srv *mcp.Server, s *Session) {
	tool := &mcp.Tool{
		Name:        "plantilla_home",
		Description: "Show the MS Plantilla home message",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := articleEndpoint(func(ctx context.Context, _ *noArgs) (Article, error) {
		return c.Home(ctx, s)
	})
	c.register(srv, tool, endpoint, kit.DecodeArgs[noArgs]())
}

func (c *Client) registerAcercaDe(srv *mcp.Server, s *Session) {
	tool := &mcp.Tool{
		Name:        "plantilla_acercade",
		Description: "Show the MS Plantilla about page (message, author, email, date)",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := articleEndpoint(func(ctx context.Context, _ *noArgs) (Article, error) {
		return c.AcercaDe(ctx, s)
	})
	c.register(srv, tool, endpoint, kit.DecodeArgs[noArgs]())
}

func (c *Client) registerListarPersonas(srv *mcp.Server, s *Session) {
	type req struct {
		Sort string `json:"sort"`
		Full bool   `json:"full"`
	}
	tool := &mcp.Tool{
		Name:        "plantilla_listar_personas",
		Description: "List every persona as a table, optionally sorted by a field",
		InputSchema: inputSchema(map[string]any{
			"sort": map[string]any{"type": "string", "description": "Field to sort by, e.g. nombre, apellidos, ranking"},
			"full": map[string]any{"type": "boolean", "description": "Show every field instead of nombre and apellidos"},
		}, nil),
	}
	endpoint := articleEndpoint(func(ctx context.Context, p *req) (Article, error) {
		return c.ListarPersonas(ctx, s, ListOptions{SortField: p.Sort, Full: p.Full})
	})
	c.register(srv, tool, endpoint, kit.DecodeArgs[req]())
}

func (c *Client) registerListarUna(srv *mcp.Server, s *Session) {
	type req struct {
		Nombre string `json:"nombre"`
	}
	tool := &mcp.Tool{
		Name:        "plantilla_listar_una",
		Description: "Show one persona by nombre and remember it as the last displayed",
		InputSchema: inputSchema(map[string]any{
			"nombre": map[string]any{"type": "string", "description": "Persona nombre"},
		}, []string{"nombre"}),
	}
	endpoint := articleEndpoint(func(ctx context.Context, p *req) (Article, error) {
		return c.ListarUna(ctx, s, p.Nombre)
	})
	c.register(srv, tool, endpoint, kit.DecodeArgs[req]())
}

func (c *Client) registerMostrarUltima(srv *mcp.Server, s *Session) {
	tool := &mcp.Tool{
		Name:        "plantilla_mostrar_ultima",
		Description: "Show again the last persona displayed by plantilla_listar_una",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := articleEndpoint(func(_ context.Context, _ *noArgs) (Article, error) {
		return c.MostrarUltima(s)
	})
	c.register(srv, tool, endpoint, kit.DecodeArgs[noArgs]())
}
