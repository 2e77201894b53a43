package ai

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Speech output format of the TTS model.
const (
	SpeechSampleRate = 24000
	SpeechChannels   = 1
	speechBitDepth   = 16
)

// Audio is raw little-endian 16-bit PCM as returned by the TTS model.
type Audio struct {
	MIMEType   string `json:"mime_type"`
	Data       string `json:"data"` // base64
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// newAudio builds Audio from an inline part, reading the rate from a
// mime type such as "audio/L16;codec=pcm;rate=24000" when present.
func newAudio(in *InlineData) Audio {
	a := Audio{MIMEType: in.MIMEType, Data: in.Data, SampleRate: SpeechSampleRate, Channels: SpeechChannels}
	for _, p := range strings.Split(in.MIMEType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				a.SampleRate = n
			}
		}
	}
	return a
}

// PCM decodes the base64 payload.
func (a Audio) PCM() ([]byte, error) {
	if a.Data == "" {
		return nil, errors.New("audio: empty payload")
	}
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64: %w", err)
	}
	return b, nil
}

// WAV wraps the PCM payload in a RIFF/WAVE container.
func (a Audio) WAV() ([]byte, error) {
	pcm, err := a.PCM()
	if err != nil {
		return nil, err
	}
	rate, ch := a.SampleRate, a.Channels
	if rate <= 0 {
		rate = SpeechSampleRate
	}
	if ch <= 0 {
		ch = SpeechChannels
	}
	blockAlign := ch * speechBitDepth / 8
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(ch))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(speechBitDepth))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// Duration returns the clip length in seconds.
func (a Audio) Duration() float64 {
	pcm, err := a.PCM()
	if err != nil || a.SampleRate <= 0 {
		return 0
	}
	ch := a.Channels
	if ch <= 0 {
		ch = 1
	}
	return float64(len(pcm)) / float64(a.SampleRate*ch*speechBitDepth/8)
}
