package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

const bedrockDefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

func init() {
	RegisterFactory("bedrock", func(cfg Config) (Provider, error) {
		// Credentials come from the default AWS chain
		return NewBedrockProvider(context.Background(), cfg.Region, cfg.Model)
	})
}

// converser is the part of *bedrockruntime.Client the provider uses
type converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider implements Provider for models hosted on Amazon Bedrock
type BedrockProvider struct {
	client converser
	model  string
}

// NewBedrockProvider creates a Bedrock provider using the default AWS
// credential chain
func NewBedrockProvider(ctx context.Context, region, model string) (*BedrockProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("bedrock: region not configured: %w", ErrMissingCredential)
	}

	if model == "" {
		model = bedrockDefaultModel
	}
	return &BedrockProvider{
		client: bedrockruntime.NewFromConfig(awsCfg),
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// CreateCompletion creates a completion through the Converse API
func (p *BedrockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	system, rest := splitSystem(req.Messages)

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: make([]types.Message, 0, len(rest)),
	}
	if system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}
	for _, m := range rest {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	inference := &types.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	if req.Temperature > 0 {
		inference.Temperature = aws.Float32(float32(req.Temperature))
	}
	input.InferenceConfig = inference

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, p.wrapError(ctx, err)
	}
	return p.parseResponse(out, model)
}

func (p *BedrockProvider) parseResponse(out *bedrockruntime.ConverseOutput, model string) (*CompletionResponse, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, NewProviderError("bedrock", ErrorCodeUnknown, "no message in response", nil)
	}

	var texts []string
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			texts = append(texts, text.Value)
		}
	}

	finishReason := string(out.StopReason)
	if out.StopReason == types.StopReasonEndTurn {
		finishReason = "stop"
	}

	var usage Usage
	if out.Usage != nil {
		usage.PromptTokens = int(aws.ToInt32(out.Usage.InputTokens))
		usage.CompletionTokens = int(aws.ToInt32(out.Usage.OutputTokens))
		usage.TotalTokens = int(aws.ToInt32(out.Usage.TotalTokens))
	}

	return &CompletionResponse{
		Content:      strings.Join(texts, "\n"),
		FinishReason: finishReason,
		Model:        model,
		Usage:        usage,
	}, nil
}

// wrapError converts AWS SDK errors to ProviderError
func (p *BedrockProvider) wrapError(ctx context.Context, err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		message := err.Error()
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			message = apiErr.ErrorMessage()
		}
		pe := newStatusError("bedrock", respErr.HTTPStatusCode(), message, err)
		if apiErr != nil {
			pe.Type = apiErr.ErrorCode()
		}
		return pe
	}
	return transportError(ctx, "bedrock", err)
}
