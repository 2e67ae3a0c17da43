// Package bedrock implements analyzer.LLMBackend over AWS Bedrock's
// Converse API, the way the teacher's pkg/llm package wraps the same
// API for document summarization.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/hashicorp/go-hclog"
)

// defaultModel is used when LLM_MODEL is unset.
const defaultModel = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

// ConverseAPI is the slice of the Bedrock runtime client this package
// calls, narrowed for testing with a mock.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Config holds the client construction parameters.
type Config struct {
	Region string       // AWS region (default: us-east-1)
	Model  string       // Bedrock model id (default: defaultModel)
	Logger hclog.Logger // optional
}

// Client implements analyzer.LLMBackend against AWS Bedrock.
type Client struct {
	client ConverseAPI
	model  string
	logger hclog.Logger
}

// New builds a Client, loading AWS credentials from the default chain.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{
		client: bedrockruntime.NewFromConfig(awsCfg),
		model:  cfg.Model,
		logger: cfg.Logger.Named("bedrock"),
	}, nil
}

// Complete satisfies analyzer.LLMBackend, sending systemPrompt and
// userPrompt through the Converse API and returning the raw response
// text for pkg/analyzer/parse.go to interpret.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: userPrompt},
				},
			},
		},
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: systemPrompt},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(1024),
			Temperature: aws.Float32(0.2),
		},
	}

	c.logger.Debug("sending request to Bedrock", "model", c.model, "prompt_length", len(userPrompt))

	resp, err := c.client.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}
	if resp.Output == nil {
		return "", fmt.Errorf("no output in bedrock response")
	}

	message, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok || message == nil || len(message.Value.Content) == 0 {
		return "", fmt.Errorf("no message content in bedrock response")
	}

	var text string
	for _, block := range message.Value.Content {
		if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
			text = textBlock.Value
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty response from bedrock")
	}

	var tokensUsed int32
	if resp.Usage != nil && resp.Usage.TotalTokens != nil {
		tokensUsed = *resp.Usage.TotalTokens
	}
	c.logger.Info("received bedrock response", "model", c.model, "tokens_used", tokensUsed)

	return text, nil
}
