package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Wire models for persisted messages. Each part is tagged with a "type"
// discriminator so that the interface slice round-trips through JSON.

type partJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ImageURL     *ImageURLContent  `json:"image_url,omitempty"`
	ToolCall     *ToolCall         `json:"tool_call,omitempty"`
	ToolResponse *ToolCallResponse `json:"tool_response,omitempty"`
}

type messageJSON struct {
	Role  Role       `json:"role"`
	Parts []partJSON `json:"parts"`
}

const (
	partTypeText         = "text"
	partTypeImageURL     = "image_url"
	partTypeToolCall     = "tool_call"
	partTypeToolResponse = "tool_response"
)

// MarshalJSON implements json.Marshaler for Message.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		Role:  m.Role,
		Parts: make([]partJSON, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		switch typ := p.(type) {
		case TextContent:
			out.Parts = append(out.Parts, partJSON{Type: partTypeText, Text: typ.Text})
		case ImageURLContent:
			iu := typ
			out.Parts = append(out.Parts, partJSON{Type: partTypeImageURL, ImageURL: &iu})
		case ToolCall:
			tc := typ
			out.Parts = append(out.Parts, partJSON{Type: partTypeToolCall, ToolCall: &tc})
		case ToolCallResponse:
			tr := typ
			out.Parts = append(out.Parts, partJSON{Type: partTypeToolResponse, ToolResponse: &tr})
		default:
			return nil, errors.Newf("unsupported content part: %T", p)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler for Message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	m.Role = in.Role
	m.Parts = make([]ContentPart, 0, len(in.Parts))
	for _, p := range in.Parts {
		switch p.Type {
		case partTypeText:
			m.Parts = append(m.Parts, TextContent{Text: p.Text})
		case partTypeImageURL:
			if p.ImageURL == nil {
				return errors.New("image_url part without payload")
			}
			m.Parts = append(m.Parts, *p.ImageURL)
		case partTypeToolCall:
			if p.ToolCall == nil {
				return errors.New("tool_call part without payload")
			}
			m.Parts = append(m.Parts, *p.ToolCall)
		case partTypeToolResponse:
			if p.ToolResponse == nil {
				return errors.New("tool_response part without payload")
			}
			m.Parts = append(m.Parts, *p.ToolResponse)
		default:
			return errors.Newf("unsupported content part type: %q", p.Type)
		}
	}
	return nil
}
