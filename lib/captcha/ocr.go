package captcha

import (
	"beykent-notifier/lib/restyutil"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Recognizer turns a prepared digit image on disk into the raw text
// the OCR model read from it. The caller owns sanitization.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// TrOCRClient runs recognition against a hosted TrOCR inference
// endpoint (the huggingface inference API shape: binary image in,
// [{"generated_text": ...}] out).
type TrOCRClient struct {
	http     *resty.Client
	endpoint string
}

func NewTrOCRClient(endpoint, token string) TrOCRClient {
	client := resty.New()
	client.SetTimeout(time.Second * 30)
	if token != "" {
		client.SetAuthToken(token)
	}
	restyutil.InstrumentClient(client, nil, restyInstrumentOutput)

	return TrOCRClient{
		http:     client,
		endpoint: endpoint,
	}
}

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

func (c TrOCRClient) Recognize(ctx context.Context, imagePath string) (string, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/octet-stream").
		SetBody(img).
		Post(c.endpoint)
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("ocr inference returned status %d", res.StatusCode())
	}

	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	err = json.Unmarshal(res.Body(), &out)
	if err != nil {
		return "", fmt.Errorf("unmarshal ocr response: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("ocr inference returned no candidates")
	}
	return out[0].GeneratedText, nil
}
