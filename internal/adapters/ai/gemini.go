// Package ai provides the generative AI adapter.
// Clean Architecture: Adapter implementing ports.AIService against the
// Gemini REST API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hmaged/lectern/internal/domain/entities"
)

// Degraded results returned when the backend is unconfigured. These are
// normal, displayable values - not errors - so display code never needs to
// null-check AI fields.
const (
	unavailableTranslation = "خدمة الترجمة غير متاحة حالياً. تأكد من إعداد مفتاح API."
	unavailableSummary     = "خدمة التلخيص غير متاحة حالياً. تأكد من إعداد مفتاح API."
	unavailableKeywords    = "خدمة استخراج الكلمات المفتاحية غير متاحة حالياً. تأكد من إعداد مفتاح API."
	unavailableResearch    = "خدمة البحث العلمي غير متاحة حالياً. تأكد من إعداد مفتاح API."
)

// GeminiClient implements ports.AIService using the Gemini generateContent
// API. An empty API key puts the client in degraded mode: every call returns
// a human-readable "service unavailable" value instead of failing.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGeminiClient creates a Gemini adapter.
func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Configured reports whether an API key is set.
func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiTool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools            []geminiTool            `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`

		GroundingMetadata struct {
			GroundingChunks []struct {
				Web struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// generate calls the generateContent endpoint and returns the first
// candidate's text along with the raw response for metadata extraction.
func (c *GeminiClient) generate(ctx context.Context, req geminiRequest) (string, *geminiResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("calling Gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("Gemini returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil, fmt.Errorf("empty Gemini response")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), &parsed, nil
}

func textRequest(prompt string, config *geminiGenerationConfig) geminiRequest {
	return geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: config,
	}
}

// Translate renders text into formal Arabic with diacritics where possible.
func (c *GeminiClient) Translate(ctx context.Context, text string) (string, error) {
	if !c.Configured() {
		return unavailableTranslation, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	prompt := fmt.Sprintf("ترجم النص التالي إلى اللغة العربية الفصحى مع التشكيل قدر الإمكان. إذا كان النص بالفعل باللغة العربية، قم بتحسين صياغته وتشكيله إذا لزم الأمر:\n\n%q", text)
	temperature := 0.2
	result, _, err := c.generate(ctx, textRequest(prompt, &geminiGenerationConfig{Temperature: &temperature}))
	return result, err
}

// Summarize produces a concise Arabic summary focused on the main ideas.
func (c *GeminiClient) Summarize(ctx context.Context, text string) (string, error) {
	if !c.Configured() {
		return unavailableSummary, nil
	}

	prompt := fmt.Sprintf("قم بتلخيص النص التالي بشكل موجز ودقيق باللغة العربية. ركز على الأفكار الرئيسية:\n\n%s", text)
	result, _, err := c.generate(ctx, textRequest(prompt, nil))
	return result, err
}

// Keywords extracts the main keywords as a comma-separated list.
func (c *GeminiClient) Keywords(ctx context.Context, text string) ([]string, error) {
	if !c.Configured() {
		return []string{unavailableKeywords}, nil
	}

	prompt := fmt.Sprintf("استخرج الكلمات المفتاحية الرئيسية من النص التالي. قدمها كقائمة مفصولة بفواصل باللغة العربية:\n\n%s", text)
	result, _, err := c.generate(ctx, textRequest(prompt, nil))
	if err != nil {
		return nil, err
	}

	var keywords []string
	for _, keyword := range strings.Split(result, ",") {
		keyword = strings.TrimSpace(keyword)
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords, nil
}

// ChapterIndex asks the model for a JSON array of chapter titles and returns
// the raw response text. The caller parses it defensively.
func (c *GeminiClient) ChapterIndex(ctx context.Context, text string) (string, error) {
	if !c.Configured() {
		// Callers fall back to heuristic chapter detection on error.
		return "", errors.New("خدمة الفهرسة غير متاحة حالياً")
	}

	prompt := fmt.Sprintf(`أنت مساعد متخصص في تحليل النصوص. قم بتحليل النص التالي واستخرج منه الفصول أو الأقسام الرئيسية مع عناوينها.
أرجع النتيجة بصيغة JSON على شكل مصفوفة من الكائنات. كل كائن يحتوي على مفتاح واحد فقط هو 'title' وقيمته هي عنوان الفصل أو القسم.

النص المراد تحليله:
---
%s
---`, text)

	result, _, err := c.generate(ctx, textRequest(prompt, &geminiGenerationConfig{ResponseMimeType: "application/json"}))
	return result, err
}

// Research answers a research query with web grounding and returns the
// cited sources. An unconfigured or failing backend yields a displayable
// degraded result with no sources.
func (c *GeminiClient) Research(ctx context.Context, query string) (*entities.ResearchResult, error) {
	if !c.Configured() {
		return &entities.ResearchResult{Text: unavailableResearch}, nil
	}

	prompt := fmt.Sprintf("ابحث عن أوراق بحثية علمية من مصادر مفتوحة حول الموضوع التالي: %q. قدم ملخصًا موجزًا للنتائج الرئيسية باللغة العربية.", query)
	req := textRequest(prompt, nil)
	req.Tools = []geminiTool{{}}

	text, parsed, err := c.generate(ctx, req)
	if err != nil {
		return &entities.ResearchResult{
			Text: fmt.Sprintf("حدث خطأ أثناء البحث عن الأوراق العلمية: %v", err),
		}, nil
	}

	result := &entities.ResearchResult{Text: text}
	for _, chunk := range parsed.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web.URI == "" {
			continue
		}
		result.Sources = append(result.Sources, entities.ResearchSource{
			Title: chunk.Web.Title,
			URI:   chunk.Web.URI,
		})
	}
	return result, nil
}
