package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConverseAPI struct {
	converse func(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

func (m *mockConverseAPI) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	return m.converse(ctx, params, optFns...)
}

func TestClientCompleteExtractsResponseText(t *testing.T) {
	mock := &mockConverseAPI{
		converse: func(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			require.NotNil(t, params.ModelId)
			assert.Equal(t, defaultModel, *params.ModelId)
			require.Len(t, params.System, 1)

			return &bedrockruntime.ConverseOutput{
				Output: &types.ConverseOutputMemberMessage{
					Value: types.Message{
						Role: types.ConversationRoleAssistant,
						Content: []types.ContentBlock{
							&types.ContentBlockMemberText{Value: "HIGH: customer-facing outage."},
						},
					},
				},
				Usage: &types.TokenUsage{TotalTokens: aws.Int32(42)},
			}, nil
		},
	}

	client := &Client{client: mock, model: defaultModel, logger: hclog.NewNullLogger()}
	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "HIGH: customer-facing outage.", text)
}

func TestClientCompletePropagatesConverseError(t *testing.T) {
	mock := &mockConverseAPI{
		converse: func(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	client := &Client{client: mock, model: defaultModel, logger: hclog.NewNullLogger()}
	_, err := client.Complete(context.Background(), "system", "user")
	assert.Error(t, err)
}

func TestClientCompleteErrorsOnEmptyContent(t *testing.T) {
	mock := &mockConverseAPI{
		converse: func(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
			return &bedrockruntime.ConverseOutput{
				Output: &types.ConverseOutputMemberMessage{
					Value: types.Message{Content: nil},
				},
			}, nil
		},
	}

	client := &Client{client: mock, model: defaultModel, logger: hclog.NewNullLogger()}
	_, err := client.Complete(context.Background(), "system", "user")
	assert.Error(t, err)
}
