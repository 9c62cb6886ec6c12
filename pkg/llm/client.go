package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 8192
)

// Caller is the streaming model client used by the agent loop.
type Caller interface {
	// Stream opens a streaming call and invokes fn for every parsed
	// event in order. A non-nil error from fn aborts the stream.
	Stream(ctx context.Context, req Request, fn func(StreamEvent) error) error

	// Complete makes a single non-streaming call and returns the
	// concatenated text blocks. Used for compaction summaries.
	Complete(ctx context.Context, req Request) (string, error)
}

// Client calls the model through Bedrock.
type Client struct {
	runtime *bedrockruntime.Client
	modelID string
}

var _ Caller = (*Client)(nil)

// NewClient loads the default credential chain and binds the client to
// the given model id.
func NewClient(ctx context.Context, modelID string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{
		runtime: bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// payload is the anthropic messages request body.
type payload struct {
	AnthropicVersion string     `json:"anthropic_version"`
	MaxTokens        int        `json:"max_tokens"`
	System           string     `json:"system,omitempty"`
	Messages         []Message  `json:"messages"`
	Tools            []ToolSpec `json:"tools,omitempty"`
}

func encodeRequest(req Request) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	body, err := json.Marshal(payload{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           req.System,
		Messages:         req.Messages,
		Tools:            req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode model request: %w", err)
	}
	return body, nil
}

// wireEvent is the JSON inside each streaming chunk.
type wireEvent struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
	Delta        struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
}

func (c *Client) Stream(ctx context.Context, req Request, fn func(StreamEvent) error) error {
	body, err := encodeRequest(req)
	if err != nil {
		return err
	}

	out, err := c.runtime.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to open model stream: %w", err)
	}

	stream := out.GetStream()
	defer stream.Close()

	stopReason := ""
	for event := range stream.Events() {
		chunk, ok := event.(*brtypes.ResponseStreamMemberChunk)
		if !ok {
			continue
		}

		var we wireEvent
		if err := json.Unmarshal(chunk.Value.Bytes, &we); err != nil {
			return fmt.Errorf("failed to decode stream event: %w", err)
		}

		var se StreamEvent
		switch we.Type {
		case "content_block_start":
			se = StreamEvent{Type: EventBlockStart, Index: we.Index, Block: we.ContentBlock}
		case "content_block_delta":
			switch we.Delta.Type {
			case "text_delta":
				se = StreamEvent{Type: EventTextDelta, Index: we.Index, Text: we.Delta.Text}
			case "input_json_delta":
				se = StreamEvent{Type: EventInputJSONDelta, Index: we.Index, Text: we.Delta.PartialJSON}
			default:
				continue
			}
		case "content_block_stop":
			se = StreamEvent{Type: EventBlockStop, Index: we.Index}
		case "message_delta":
			if we.Delta.StopReason != "" {
				stopReason = we.Delta.StopReason
			}
			continue
		case "message_stop":
			se = StreamEvent{Type: EventMessageStop, StopReason: stopReason}
		default:
			continue
		}

		if err := fn(se); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("model stream failed: %w", err)
	}
	return nil
}

// completion is the non-streaming response body.
type completion struct {
	Content []ContentBlock `json:"content"`
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body, err := encodeRequest(req)
	if err != nil {
		return "", err
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	var resp completion
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}
	text := ""
	for _, block := range resp.Content {
		if block.Type == BlockText {
			text += block.Text
		}
	}
	return text, nil
}
