package server

import (
	"reflect"
	"testing"

	"github.com/ironsheep/posterize-mcp/internal/posterize"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"posterize_load",
		"posterize_render",
		"posterize_update",
		"posterize_estimate",
		"posterize_export",
		"posterize_save_preview",
		"posterize_palette",
		"posterize_presets",
		"posterize_history",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema should have properties map")
			}
			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required field %s has no property", r)
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	tests := []struct {
		tool string
		want bool
	}{
		{"posterize_load", true},
		{"posterize_save_preview", true},
		{"posterize_render", false},
		{"posterize_export", false},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			required, _ := toolMap[tt.tool].InputSchema["required"].([]string)
			got := false
			for _, r := range required {
				if r == "path" {
					got = true
				}
			}
			if got != tt.want {
				t.Errorf("path required: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettingsProperties_PresetEnum(t *testing.T) {
	preset := settingsProperties()["preset"].(map[string]interface{})
	enum := preset["enum"].([]string)
	if !reflect.DeepEqual(enum, posterize.PresetNames()) {
		t.Errorf("preset enum %v does not match presets %v", enum, posterize.PresetNames())
	}
}

func TestSettingsProperties_MatchArgs(t *testing.T) {
	props := settingsProperties()
	fields := reflect.TypeOf(settingsArgs{})
	for i := 0; i < fields.NumField(); i++ {
		tag := fields.Field(i).Tag.Get("json")
		name := tag
		for j := 0; j < len(tag); j++ {
			if tag[j] == ',' {
				name = tag[:j]
				break
			}
		}
		if _, ok := props[name]; !ok {
			t.Errorf("settingsArgs field %s has no schema property", name)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}
