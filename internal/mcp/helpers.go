package mcpserver

import "scrapbook/internal/domain"

func boolPtr(v bool) *bool { return &v }

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

// optFloat returns a pointer to args[key] when present.
func optFloat(args map[string]any, key string) *float64 {
	if v, ok := args[key].(float64); ok {
		return &v
	}
	return nil
}

func optString(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

// blockSummary is a compact view of a block for listing.
type blockSummary struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	ZIndex   int     `json:"zIndex"`
	Rotation float64 `json:"rotation"`
	Preview  string  `json:"preview,omitempty"`
}

func summarizeBlock(b domain.Block) blockSummary {
	preview := b.Content
	if len([]rune(preview)) > 80 {
		preview = string([]rune(preview)[:80]) + "..."
	}
	return blockSummary{
		ID:       b.ID,
		Type:     string(b.Type),
		X:        b.X,
		Y:        b.Y,
		Width:    b.EffectiveWidth(),
		ZIndex:   b.ZIndex,
		Rotation: b.Rotation,
		Preview:  preview,
	}
}
