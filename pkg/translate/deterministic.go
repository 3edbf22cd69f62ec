package translate

import (
	"context"
	"fmt"

	"github.com/dragomanhq/dragoman/pkg/langtag"
)

// TagStrategy is the terminal fallback: it echoes the input annotated
// with the target language code. It cannot fail, which is what makes
// the chain total.
type TagStrategy struct{}

func (TagStrategy) Kind() StrategyKind { return StrategyDeterministic }

func (TagStrategy) Translate(_ context.Context, text, _, target string) (string, error) {
	return renderTagged(text, target), nil
}

func renderTagged(text, target string) string {
	code := langtag.Normalize(target)
	if code == "" {
		return text
	}
	return fmt.Sprintf("%s [%s]", text, code)
}

var _ Strategy = TagStrategy{}
