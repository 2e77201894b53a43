package ai

import "strings"

// Wire types for the generateContent REST call. Only the fields the
// dashboard reads or writes are modelled.

type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Tool enables a server-side tool. An empty GoogleSearch turns on search grounding.
type Tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

// SearchTool is the google_search grounding tool.
func SearchTool() Tool { return Tool{GoogleSearch: &struct{}{}} }

type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

type ImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
	ImageConfig        *ImageConfig  `json:"imageConfig,omitempty"`
	Temperature        *float64      `json:"temperature,omitempty"`
}

type GenerateContentRequest struct {
	Contents         []Content         `json:"contents"`
	Tools            []Tool            `json:"tools,omitempty"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// TextRequest wraps a single user prompt.
func TextRequest(prompt string) GenerateContentRequest {
	return GenerateContentRequest{Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}}}
}

type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

type GroundingMetadata struct {
	GroundingChunks  []GroundingChunk `json:"groundingChunks,omitempty"`
	WebSearchQueries []string         `json:"webSearchQueries,omitempty"`
}

type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type GenerateContentResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion,omitempty"`
	RequestID     string        `json:"-"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FirstInlineData returns the first binary part of the first candidate.
func (r *GenerateContentResponse) FirstInlineData() (*InlineData, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return nil, false
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData, true
		}
	}
	return nil, false
}

// Sources lists web grounding chunks of the first candidate in order.
func (r *GenerateContentResponse) Sources() []Source {
	out := []Source{}
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return out
	}
	for _, ch := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if ch.Web == nil {
			continue
		}
		out = append(out, Source{Title: ch.Web.Title, URL: ch.Web.URI})
	}
	return out
}
