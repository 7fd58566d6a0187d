// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz notebook tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/storage"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp   *server.MCPServer
	mgr   *notebook.Manager
	store storage.Provider
}

// New creates a new MCP server with all Laguz tools registered.
func New(mgr *notebook.Manager, store storage.Provider) *Server {
	s := &Server{mgr: mgr, store: store}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List all notebooks with block counts."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("read_notebook",
		mcp.WithDescription("Read a notebook's structure: its ordered blocks and backing files."),
		mcp.WithString("notebook_id", mcp.Required(), mcp.Description("Notebook identifier")),
	), s.readNotebook)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the raw content of a block's backing file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path (e.g. <notebook-id>/<block-id>.md)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a new block in a notebook. Type is one of markdown, python, csv. "+
			"When position is given, blocks at or after it shift forward to make room."),
		mcp.WithString("notebook_id", mcp.Required(), mcp.Description("Notebook identifier")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Block type: markdown, python, or csv")),
		mcp.WithNumber("position", mcp.Description("Optional insertion position (appended when omitted)")),
	), s.createBlock)

	s.mcp.AddTool(mcp.NewTool("update_block",
		mcp.WithDescription("Update fields of an existing block. The block's type never changes; "+
			"fields belonging to a different variant are ignored."),
		mcp.WithString("notebook_id", mcp.Required(), mcp.Description("Notebook identifier")),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("Block identifier")),
		mcp.WithNumber("position", mcp.Description("New position (shift rule applies on reorder)")),
		mcp.WithBoolean("edit_mode", mcp.Description("Markdown blocks: toggle edit mode")),
		mcp.WithString("last_output", mcp.Description("Python blocks: recorded execution output")),
		mcp.WithBoolean("is_executing", mcp.Description("Python blocks: execution in progress")),
	), s.updateBlock)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Write content to a block's backing file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New file content")),
	), s.writeFile)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotebooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.mgr.ListNotebooks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(metas, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("notebook_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var nb models.Notebook
	err = s.mgr.WithSession(ctx, id, func(sess *notebook.Session) error {
		nb = *sess.Notebook()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("notebook %s: %v", id, err)), nil
	}
	out, _ := json.MarshalIndent(nb, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("notebook_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var position *int
	if v, pErr := req.RequireFloat("position"); pErr == nil {
		p := int(v)
		position = &p
	}

	var blockID string
	err = s.mgr.WithSession(ctx, id, func(sess *notebook.Session) error {
		var err error
		blockID, err = sess.CreateBlock(ctx, models.BlockType(typ), position)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(blockID), nil
}

func (s *Server) updateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("notebook_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var patch notebook.BlockPatch
	if v, pErr := req.RequireFloat("position"); pErr == nil {
		p := int(v)
		patch.Position = &p
	}
	if v, pErr := req.RequireBool("edit_mode"); pErr == nil {
		patch.EditMode = &v
	}
	if v, pErr := req.RequireString("last_output"); pErr == nil {
		patch.LastOutput = &v
	}
	if v, pErr := req.RequireBool("is_executing"); pErr == nil {
		patch.IsExecuting = &v
	}

	var updated models.Block
	err = s.mgr.WithSession(ctx, id, func(sess *notebook.Session) error {
		if err := sess.UpdateBlock(blockID, patch); err != nil {
			return err
		}
		var err error
		updated, err = sess.Block(blockID)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(updated, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) writeFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.Write(path, []byte(content)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText("ok"), nil
}
