package providers

import (
	"context"
	"fmt"

	"github.com/nclamvn/prismy-ultimate/internal/translation"
)

// Static is the offline backend: it tags the text with the target language
// instead of translating. It backs development setups without provider
// credentials and the test suite, behind the same interface as the real
// backends.
type Static struct {
	name      string
	languages []string
	fail      bool
}

var _ translation.Provider = (*Static)(nil)

type StaticOption func(*Static)

func WithStaticName(name string) StaticOption {
	return func(p *Static) { p.name = name }
}

func WithStaticLanguages(languages ...string) StaticOption {
	return func(p *Static) { p.languages = languages }
}

// WithStaticFailure makes every call return a provider error. Used to
// exercise fallback chains.
func WithStaticFailure() StaticOption {
	return func(p *Static) { p.fail = true }
}

func NewStatic(opts ...StaticOption) *Static {
	p := &Static{name: "static"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Static) Name() string { return p.name }

func (p *Static) Languages() []string { return p.languages }

func (p *Static) Translate(_ context.Context, req translation.Request) (string, error) {
	if p.fail {
		return "", translation.NewProviderError(p.name, 0, false, fmt.Errorf("provider configured to fail"))
	}
	return fmt.Sprintf("[%s] %s", req.TargetLang, req.Text), nil
}
