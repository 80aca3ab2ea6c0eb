package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ironsheep/posterize-mcp/internal/pipeline"
	"github.com/ironsheep/posterize-mcp/internal/posterize"
	"github.com/ironsheep/posterize-mcp/internal/prefs"
	"github.com/ironsheep/posterize-mcp/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "posterize_load", "posterize_render").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "posterize_load":
		return s.handleLoad(args)
	case "posterize_render":
		return s.handleRender(args)
	case "posterize_update":
		return s.handleUpdate(args)
	case "posterize_estimate":
		return s.handleEstimate(args)
	case "posterize_export":
		return s.handleExport(args)
	case "posterize_palette":
		return s.handlePalette(args)
	case "posterize_presets":
		return s.handlePresets(args)
	case "posterize_save_preview":
		return s.handleSavePreview(args)
	case "posterize_history":
		return s.handleHistory(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes optional tool arguments. Empty arguments are fine.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// settingsArgs is a partial settings update. Absent fields keep their
// current value; a preset is applied before the other fields.
type settingsArgs struct {
	Preset         string   `json:"preset,omitempty"`
	Quality        *float64 `json:"quality,omitempty"`
	Scale          *float64 `json:"scale,omitempty"`
	BW             *bool    `json:"bw,omitempty"`
	Mode           *string  `json:"mode,omitempty"`
	Bits           *int     `json:"bits,omitempty"`
	PaletteN       *int     `json:"palette_n,omitempty"`
	DitherType     *string  `json:"dither_type,omitempty"`
	DitherStrength *float64 `json:"dither_strength,omitempty"`
	BlockSize      *int     `json:"block_size,omitempty"`
	BlockStrength  *float64 `json:"block_strength,omitempty"`
	ForcePalette   bool     `json:"force_palette,omitempty"`
}

// apply merges the update into base.
func (a settingsArgs) apply(base posterize.Settings) (posterize.Settings, error) {
	s := base
	if a.Preset != "" {
		p, ok := posterize.Preset(a.Preset)
		if !ok {
			return s, fmt.Errorf("unknown preset: %s", a.Preset)
		}
		s = p
	}
	if a.Quality != nil {
		s.Quality = *a.Quality
	}
	if a.Scale != nil {
		s.Scale = *a.Scale
	}
	if a.BW != nil {
		s.BW = *a.BW
	}
	if a.Mode != nil {
		s.Mode = posterize.ParseMode(*a.Mode)
	}
	if a.Bits != nil {
		s.Bits = *a.Bits
	}
	if a.PaletteN != nil {
		s.PaletteN = *a.PaletteN
	}
	if a.DitherType != nil {
		s.DitherType = posterize.ParseDitherType(*a.DitherType)
	}
	if a.DitherStrength != nil {
		s.DitherStrength = *a.DitherStrength
	}
	if a.BlockSize != nil {
		s.BlockSize = *a.BlockSize
	}
	if a.BlockStrength != nil {
		s.BlockStrength = *a.BlockStrength
	}
	return s.Clamp(), nil
}

// force reports whether the update touches quantization inputs that warrant
// a forced stage2 rebuild: presets, grayscale, palette size and dither.
func (a settingsArgs) force() bool {
	return a.ForcePalette || a.Preset != "" || a.BW != nil || a.PaletteN != nil ||
		a.DitherType != nil || a.DitherStrength != nil
}

// === Session Handlers ===

type loadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleLoad(args json.RawMessage) (interface{}, error) {
	var a loadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	src, err := s.sess.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.sess.Render(s.sess.Settings(), true)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"source": src.Info(),
		"before": fmt.Sprintf("%dx%d %s", src.Width, src.Height, session.FormatBytes(float64(src.Bytes))),
		"render": s.summarize(res, false),
	}, nil
}

type renderArgs struct {
	settingsArgs
	IncludePreview bool `json:"include_preview,omitempty"`
	RegionWidth    int  `json:"region_width,omitempty"`
	RegionHeight   int  `json:"region_height,omitempty"`
}

func (s *Server) handleRender(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	settings, err := a.apply(s.sess.Settings())
	if err != nil {
		return nil, err
	}
	if s.surface != nil && a.RegionWidth > 0 && a.RegionHeight > 0 {
		s.surface.SetRegion(a.RegionWidth, a.RegionHeight)
	}

	res, err := s.sess.Render(settings, a.force())
	if err != nil {
		return nil, err
	}
	return s.summarize(res, a.IncludePreview), nil
}

func (s *Server) handleUpdate(args json.RawMessage) (interface{}, error) {
	var a settingsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if s.sess.Source() == nil {
		return nil, session.ErrNoExport
	}
	settings, err := a.apply(s.sess.Settings())
	if err != nil {
		return nil, err
	}
	s.sess.RequestRender(settings, a.force())

	return map[string]interface{}{
		"scheduled":     true,
		"force_palette": a.force(),
		"settings":      settings,
	}, nil
}

type estimateArgs struct {
	Wait      *bool `json:"wait,omitempty"`
	TimeoutMs int   `json:"timeout_ms,omitempty"`
}

func (s *Server) handleEstimate(args json.RawMessage) (interface{}, error) {
	var a estimateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	s.sess.FlushRender()

	if a.Wait != nil && !*a.Wait {
		est, ok := s.sess.Estimate()
		if !ok {
			return map[string]interface{}{"ready": false}, nil
		}
		return estimateResult(est), nil
	}

	timeout := 10 * time.Second
	if a.TimeoutMs > 0 {
		timeout = time.Duration(a.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	est, err := s.sess.WaitEstimate(ctx)
	if err != nil {
		return nil, fmt.Errorf("estimate not ready: %w", err)
	}
	return estimateResult(est), nil
}

func estimateResult(est *session.Estimate) map[string]interface{} {
	out := map[string]interface{}{
		"ready":    true,
		"estimate": est,
		"after":    fmt.Sprintf("%dx%d %s", est.Width, est.Height, est.Size),
	}
	if est.ReductionPct != nil {
		out["reduction"] = fmt.Sprintf("%.1f%%", *est.ReductionPct)
	} else {
		out["reduction"] = "-"
	}
	return out
}

type exportArgs struct {
	Dir       string `json:"dir,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

func (s *Server) handleExport(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	dir := a.Dir
	if dir == "" {
		dir = s.exportDir
	}

	timeout := 30 * time.Second
	if a.TimeoutMs > 0 {
		timeout = time.Duration(a.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.sess.Export(ctx, dir)
}

func (s *Server) handlePalette(args json.RawMessage) (interface{}, error) {
	s.sess.FlushRender()
	return s.sess.PaletteReport()
}

type presetEntry struct {
	Name     string             `json:"name"`
	Settings posterize.Settings `json:"settings"`
}

func (s *Server) handlePresets(args json.RawMessage) (interface{}, error) {
	names := posterize.PresetNames()
	out := make([]presetEntry, 0, len(names))
	for _, name := range names {
		p, _ := posterize.Preset(name)
		out = append(out, presetEntry{Name: name, Settings: p})
	}
	return map[string]interface{}{"presets": out}, nil
}

type savePreviewArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSavePreview(args json.RawMessage) (interface{}, error) {
	var a savePreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if s.surface == nil {
		return nil, fmt.Errorf("no preview surface configured")
	}
	s.sess.FlushRender()
	if err := s.surface.Save(a.Path); err != nil {
		return nil, err
	}
	frame := s.surface.Frame()
	return map[string]interface{}{
		"path":   a.Path,
		"width":  frame.Bounds().Dx(),
		"height": frame.Bounds().Dy(),
	}, nil
}

type historyArgs struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Server) handleHistory(args json.RawMessage) (interface{}, error) {
	var a historyArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, fmt.Errorf("export history is disabled")
	}
	limit := a.Limit
	if limit <= 0 {
		limit = 20
	}
	records, err := s.history.Exports(limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []prefs.ExportRecord{}
	}
	return map[string]interface{}{"exports": records}, nil
}

// renderSummary is the JSON view of a render.
type renderSummary struct {
	ExportWidth       int                `json:"export_width"`
	ExportHeight      int                `json:"export_height"`
	Preview           pipeline.Preview   `json:"preview"`
	CapNote           string             `json:"cap_note,omitempty"`
	Nearest           bool               `json:"nearest"`
	ElapsedMs         int64              `json:"elapsed_ms"`
	CacheKey          string             `json:"cache_key"`
	Rebuilt           pipeline.Rebuilt   `json:"rebuilt"`
	Settings          posterize.Settings `json:"settings"`
	SuggestedFilename string             `json:"suggested_filename"`
	PaletteSize       int                `json:"palette_size,omitempty"`
	PreviewPNG        string             `json:"preview_png_base64,omitempty"`
}

func (s *Server) summarize(res *pipeline.Result, includePreview bool) renderSummary {
	out := renderSummary{
		ExportWidth:       res.ExportWidth,
		ExportHeight:      res.ExportHeight,
		Preview:           res.Dims,
		CapNote:           session.CapNote(res.Capped, res.Dims.Width, res.Dims.Height, res.ExportWidth, res.ExportHeight),
		Nearest:           res.Nearest,
		ElapsedMs:         res.ElapsedMs(),
		CacheKey:          res.CacheKey,
		Rebuilt:           res.Rebuilt,
		Settings:          res.Settings,
		SuggestedFilename: s.sess.SuggestedFilename(res),
		PaletteSize:       res.PaletteSize,
	}
	if includePreview && s.surface != nil {
		if b64, err := s.surface.PNGBase64(); err == nil {
			out.PreviewPNG = b64
		}
	}
	return out
}
