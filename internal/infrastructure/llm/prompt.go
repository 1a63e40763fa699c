package llm

import (
	"fmt"
	"strings"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

const systemPrompt = `You tag games-industry news for an analyst terminal.
Return only a JSON object of the form {"companies": [...], "themes": [...]}.
"companies" lists the canonical names of companies the text is materially about.
"themes" uses only these slugs: ai, live-service, monetization, ugc, esports, web3, labor, transmedia.
Use empty arrays when nothing applies. No prose, no markdown.`

func userPrompt(req ports.ClassifyRequest) string {
	return fmt.Sprintf("Title: %s\nExcerpt: %s", strings.TrimSpace(req.Title), strings.TrimSpace(req.Excerpt))
}
