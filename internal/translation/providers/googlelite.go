package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nclamvn/prismy-ultimate/internal/translation"
)

const googleLiteEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleLite translates through the unauthenticated Google Translate gtx
// endpoint. It is rate-limited upstream and serves as the free-tier and
// fallback backend. The advisory Context of a request is ignored, the
// endpoint has no prompt.
type GoogleLite struct {
	endpoint string
	client   *http.Client
}

var _ translation.Provider = (*GoogleLite)(nil)

func NewGoogleLite() *GoogleLite {
	return &GoogleLite{
		endpoint: googleLiteEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GoogleLite) Name() string { return "googlelite" }

func (p *GoogleLite) Languages() []string { return nil }

func (p *GoogleLite) Translate(ctx context.Context, req translation.Request) (string, error) {
	source := req.SourceLang
	if source == "" {
		source = "auto"
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", source)
	params.Set("tl", req.TargetLang)
	params.Set("dt", "t")
	params.Set("q", req.Text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", translation.NewProviderError(p.Name(), 0, false, err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", translation.NewProviderError(p.Name(), 0, true, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, true, err)
	}
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, retryable,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	translated, err := decodeGtxResponse(body)
	if err != nil {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, false, err)
	}
	if strings.TrimSpace(translated) == "" {
		return "", translation.NewProviderError(p.Name(), resp.StatusCode, true, fmt.Errorf("empty translation"))
	}
	return translated, nil
}

// decodeGtxResponse walks the gtx nested-array payload: the first element is
// a list of segments whose first field is the translated text.
func decodeGtxResponse(body []byte) (string, error) {
	var payload []interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("malformed gtx response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty gtx response")
	}
	segments, ok := payload[0].([]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected gtx response shape")
	}

	var b strings.Builder
	for _, segment := range segments {
		fields, ok := segment.([]interface{})
		if !ok || len(fields) == 0 {
			continue
		}
		if text, ok := fields[0].(string); ok {
			b.WriteString(text)
		}
	}
	return b.String(), nil
}
