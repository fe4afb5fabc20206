package transform

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/types"
)

// toolInputJSON renders a tool-call input as a JSON string.
func toolInputJSON(input any) string {
	switch v := input.(type) {
	case nil:
		return "{}"
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
		return "{}"
	case json.RawMessage:
		if len(v) == 0 {
			return "{}"
		}
		return string(v)
	case []byte:
		if len(v) == 0 {
			return "{}"
		}
		return string(v)
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// toolInputObject decodes a tool-call input into an argument map.
func toolInputObject(input any) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(toolInputJSON(input)), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// toolOutputText renders a tool result as text. String values are used verbatim.
func toolOutputText(out *types.ToolOutput) string {
	if out == nil || out.Value == nil {
		return ""
	}
	if s, ok := out.Value.(string); ok {
		return s
	}
	b, err := json.Marshal(out.Value)
	if err != nil {
		return fmt.Sprint(out.Value)
	}
	return string(b)
}

// toolCallDirective is the text form of a tool call for families that reject
// tool-call content.
func toolCallDirective(name, input string) string {
	return `[Called tool "` + name + `" with: ` + input + `]`
}

// toolResultDirective is the text form of a tool result.
func toolResultDirective(name, text string) string {
	return `[Tool result from "` + name + `": ` + text + `]`
}

// partsText joins the text parts of a message.
func partsText(parts []types.Part) string {
	var texts []string
	for _, p := range parts {
		if p.Type == types.PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// callNames maps tool-call ids to tool names across the whole prompt so a
// result without a name can still be labelled.
func callNames(prompt types.Prompt) map[string]string {
	names := map[string]string{}
	for _, m := range prompt {
		for _, p := range m.Parts {
			if p.Type == types.PartToolCall && p.ToolCallID != "" {
				names[p.ToolCallID] = p.ToolName
			}
		}
	}
	return names
}

func resultName(p types.Part, names map[string]string) string {
	if p.ToolName != "" {
		return p.ToolName
	}
	if n := names[p.ToolCallID]; n != "" {
		return n
	}
	return p.ToolCallID
}

// imageURL converts a file part into an image URL. ok is false when the part
// is not an image or the model does not accept images.
func imageURL(p types.Part, caps models.Capabilities) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(p.MediaType), "image/") || !caps.SupportsImages {
		return "", false
	}
	if p.URL != "" {
		return normalizeImageDataURL(p.URL), true
	}
	if len(p.Data) == 0 {
		return "", false
	}
	return "data:" + p.MediaType + ";base64," + base64.StdEncoding.EncodeToString(p.Data), true
}

func droppedFile(p types.Part, caps models.Capabilities) types.Warning {
	mt := p.MediaType
	if mt == "" {
		mt = "unknown media type"
	}
	return types.Warning{
		Type:    types.WarningUnsupportedSetting,
		Setting: "file",
		Details: fmt.Sprintf("%s attachment is not supported by %s and was dropped", mt, caps.ModelID),
	}
}

// normalizeImageDataURL repairs URL-safe or unpadded base64 payloads in data URLs.
func normalizeImageDataURL(u string) string {
	if !strings.HasPrefix(u, "data:image/") || !strings.Contains(u, ";base64,") {
		return u
	}
	header, data, ok := strings.Cut(u, ",")
	if !ok {
		return u
	}
	data, _ = url.PathUnescape(data)
	data = strings.NewReplacer("\n", "", "\r", "", "-", "+", "_", "/").Replace(data)
	if pad := len(data) % 4; pad != 0 {
		data += strings.Repeat("=", 4-pad)
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return u
	}
	return header + "," + data
}
