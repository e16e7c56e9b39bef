package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"surveyguard/internal/models"
)

// TextQualityClient calls the external text-quality model. The call is
// time-bounded and cancellable; when it fails the method is reported not
// applicable and the composite score is recomputed from the remaining
// methods, never a silent 0 or 1.
type TextQualityClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewTextQualityClient builds a client. An empty endpoint disables the
// method entirely.
func NewTextQualityClient(endpoint, apiKey string, timeout time.Duration) *TextQualityClient {
	return &TextQualityClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client is configured to make calls.
func (c *TextQualityClient) Enabled() bool {
	return c != nil && c.endpoint != ""
}

type textQualityRequest struct {
	Answers []textQualityAnswer `json:"answers"`
}

type textQualityAnswer struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
}

type textQualityResponse struct {
	QualityScore float64  `json:"qualityScore"`
	Flags        []string `json:"flags"`
}

// Score rates the session's open-ended answers. The returned score is
// bot-likeness: 1 minus the model's quality score.
func (c *TextQualityClient) Score(ctx context.Context, f *SessionFeatures) (MethodResult, error) {
	if !c.Enabled() {
		return notApplicable(0), nil
	}
	if len(f.OpenAnswers) == 0 {
		return notApplicable(0), nil
	}

	req := textQualityRequest{Answers: make([]textQualityAnswer, 0, len(f.OpenAnswers))}
	for _, a := range f.OpenAnswers {
		if a.Value == "" {
			continue
		}
		req.Answers = append(req.Answers, textQualityAnswer{QuestionID: a.QuestionID, Text: a.Value})
	}
	if len(req.Answers) == 0 {
		return notApplicable(0), nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return notApplicable(len(req.Answers)), fmt.Errorf("%w: encode request: %v", models.ErrExternalScorerUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return notApplicable(len(req.Answers)), fmt.Errorf("%w: build request: %v", models.ErrExternalScorerUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return notApplicable(len(req.Answers)), fmt.Errorf("%w: %v", models.ErrExternalScorerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return notApplicable(len(req.Answers)), fmt.Errorf("%w: status %d", models.ErrExternalScorerUnavailable, resp.StatusCode)
	}

	var out textQualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return notApplicable(len(req.Answers)), fmt.Errorf("%w: decode response: %v", models.ErrExternalScorerUnavailable, err)
	}

	quality := clamp01(out.QualityScore)
	var flags []models.Flag
	if quality < 0.3 {
		detail := "external model rates answer text as low quality"
		if len(out.Flags) > 0 {
			detail = out.Flags[0]
		}
		flags = append(flags, models.Flag{
			Name:       models.PatternLowTextQuality,
			Confidence: 1 - quality,
			Observed:   quality,
			Threshold:  0.3,
			Detail:     detail,
		})
	}

	return MethodResult{
		Score:      1 - quality,
		Applicable: true,
		SampleSize: len(req.Answers),
		Flags:      flags,
	}, nil
}
