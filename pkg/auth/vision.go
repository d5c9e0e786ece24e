package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/pkg/errors"
)

const challengePrompt = "这是一个数学验证码图片，请识别图片中的数学算式并计算结果。只返回最终的数字答案，不要包含其他文字。例如：如果图片显示'5-0×9=?'，你应该返回'5'。"

var firstInteger = regexp.MustCompile(`-?\d+`)

type VisionOptions struct {
	// BaseURL is either an API root such as https://api.openai.com/v1 or the
	// full chat completions endpoint.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// VisionSolver asks an OpenAI-compatible vision model to read the arithmetic
// challenge and answer it.
type VisionSolver struct {
	client   *resty.Client
	endpoint string
	model    string
	apiKey   string
}

func NewVisionSolver(opts VisionOptions) *VisionSolver {
	client := resty.New()
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	endpoint := strings.TrimRight(opts.BaseURL, "/")
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	return &VisionSolver{client: client, endpoint: endpoint, model: opts.Model, apiKey: opts.APIKey}
}

type chatContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *VisionSolver) Solve(ctx context.Context, png []byte) (string, error) {
	if s.apiKey == "" {
		return "", data.NewError(data.KindConfig, "solve challenge: AI_API_KEY is not set", nil)
	}

	body := chatRequest{
		Model: s.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: challengePrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
				}},
			},
		}},
	}

	var out chatResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(body).
		SetResult(&out).
		Post(s.endpoint)
	if err != nil {
		return "", errors.Wrap(err, "solve challenge")
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("solve challenge: unexpected status %s: %s", resp.Status(), resp.String())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("solve challenge: empty completion")
	}

	answer := extractAnswer(out.Choices[0].Message.Content)
	slog.DebugContext(ctx, "challenge answered", "answer", answer)
	return answer, nil
}

// extractAnswer returns the first signed integer in the model's reply, or the
// trimmed reply when it has none.
func extractAnswer(content string) string {
	content = strings.TrimSpace(content)
	if m := firstInteger.FindString(content); m != "" {
		return m
	}
	return content
}
