package whispercpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"earworm/internal/audio"
	"earworm/internal/domain"
	"earworm/internal/ports"
	"earworm/internal/retry"
)

// Config controls the whisper.cpp server client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Retry   retry.Config
}

// Client implements ports.SpeechEngine against a whisper.cpp server.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8178"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "whispercpp"),
	}
}

type inferenceResponse struct {
	Language string    `json:"language"`
	Text     string    `json:"text"`
	Segments []segment `json:"segments"`
}

type segment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	AvgLogprob float64 `json:"avg_logprob"`
	Words      []word  `json:"words"`
}

type word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

func (c *Client) Transcribe(ctx context.Context, clip domain.AudioClip, language string) (domain.RawTranscript, error) {
	wav, err := audio.EncodeWAV(clip)
	if err != nil {
		return domain.RawTranscript{}, err
	}

	var result inferenceResponse
	started := time.Now()
	err = retry.Do(ctx, c.cfg.Retry, func() error {
		return c.infer(ctx, wav, language, &result)
	})
	if err != nil {
		return domain.RawTranscript{}, err
	}

	raw := toTranscript(result)
	c.logger.Debug("transcribed",
		"audio", clip.Duration(),
		"elapsed", time.Since(started),
		"tokens", len(raw.Tokens),
	)
	if raw.Empty() {
		return domain.RawTranscript{}, ports.ErrEmptyTranscript
	}
	return raw, nil
}

func (c *Client) infer(ctx context.Context, wav []byte, language string, out *inferenceResponse) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return retry.Permanent(fmt.Errorf("creating form file: %w", err))
	}
	if _, err := part.Write(wav); err != nil {
		return retry.Permanent(fmt.Errorf("writing audio: %w", err))
	}

	fields := map[string]string{
		"response_format": "verbose_json",
		"temperature":     "0.0",
	}
	if language != "" {
		fields["language"] = language
	}
	if c.cfg.Model != "" {
		fields["model"] = c.cfg.Model
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return retry.Permanent(fmt.Errorf("writing %s field: %w", key, err))
		}
	}
	if err := writer.Close(); err != nil {
		return retry.Permanent(fmt.Errorf("closing writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/inference", body)
	if err != nil {
		return retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("whisper server error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if retry.IsRetryableHTTPStatus(resp.StatusCode) {
			c.logger.Warn("retryable server error", "status", resp.StatusCode)
			return err
		}
		return retry.Permanent(err)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// toTranscript flattens segments into timed tokens. Segments without word
// timings have their words spread evenly over the segment.
func toTranscript(resp inferenceResponse) domain.RawTranscript {
	raw := domain.RawTranscript{Language: resp.Language}

	segments := resp.Segments
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		segments = []segment{{Text: resp.Text}}
	}

	for _, seg := range segments {
		if isNonSpeech(seg.Text) {
			continue
		}
		if len(seg.Words) > 0 {
			for _, w := range seg.Words {
				text := strings.TrimSpace(w.Word)
				if text == "" || isNonSpeech(text) {
					continue
				}
				raw.Tokens = append(raw.Tokens, domain.Token{
					Text:       text,
					Start:      seconds(w.Start),
					End:        seconds(w.End),
					Confidence: w.Probability,
				})
			}
			continue
		}
		raw.Tokens = append(raw.Tokens, spread(seg)...)
	}
	return raw
}

func spread(seg segment) []domain.Token {
	words := strings.Fields(seg.Text)
	if len(words) == 0 {
		return nil
	}
	start, end := seconds(seg.Start), seconds(seg.End)
	step := max(end-start, 0) / time.Duration(len(words))

	out := make([]domain.Token, 0, len(words))
	for i, w := range words {
		at := start + time.Duration(i)*step
		out = append(out, domain.Token{Text: w, Start: at, End: at + step})
	}
	return out
}

// isNonSpeech matches whisper annotations such as [BLANK_AUDIO] or (music).
func isNonSpeech(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return false
	}
	return (text[0] == '[' && text[len(text)-1] == ']') ||
		(text[0] == '(' && text[len(text)-1] == ')' && !strings.Contains(text[1:len(text)-1], " "))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
