package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dltmdgh0611/ownbrief/briefing"
)

const scriptPath = "/api/briefing/script"

// sectionCompleteCode is the service's natural-end signal for the dynamic
// section list. It arrives with HTTP 200 and is not an error condition.
const sectionCompleteCode = "SECTION_COMPLETE"

// ScriptClient fetches generated section scripts. It implements
// briefing.ScriptSource.
type ScriptClient struct {
	*Client
}

// NewScriptClient wraps the shared client for the script endpoint.
func NewScriptClient(c *Client) *ScriptClient {
	return &ScriptClient{Client: c}
}

type scriptRequest struct {
	SectionIndex int    `json:"sectionIndex"`
	ToneOfVoice  string `json:"toneOfVoice,omitempty"`
}

type scriptResponse struct {
	Success   bool           `json:"success"`
	Script    string         `json:"script"`
	Data      map[string]any `json:"data"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Completed bool           `json:"completed"`
}

// Script requests the spoken text for one section. A SECTION_COMPLETE
// response maps to briefing.ErrSectionComplete; any other failure is
// returned as an error the pipeline treats as fatal.
func (c *ScriptClient) Script(ctx context.Context, section briefing.SectionDescriptor, toneOfVoice string) (briefing.Script, error) {
	body := scriptRequest{SectionIndex: section.Index, ToneOfVoice: toneOfVoice}

	data, status, err := c.postJSON(ctx, scriptPath, body)
	if err != nil {
		return briefing.Script{}, fmt.Errorf("script request failed: %w", err)
	}

	var resp scriptResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return briefing.Script{}, fmt.Errorf("malformed script response: %w", err)
	}

	if !resp.Success {
		if resp.Error == sectionCompleteCode {
			return briefing.Script{}, briefing.ErrSectionComplete
		}
		return briefing.Script{}, serviceError(status, errorEnvelope{
			Error: resp.Error, Message: resp.Message,
		})
	}
	if resp.Script == "" {
		return briefing.Script{}, fmt.Errorf("script response missing text for section %d", section.Index)
	}

	c.logger.Debug("script received",
		"section", section.Index, "name", section.Name, "chars", len(resp.Script))
	return briefing.Script{Text: resp.Script, Data: resp.Data}, nil
}
