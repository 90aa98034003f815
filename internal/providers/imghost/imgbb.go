// Package imghost uploads a submitted photo to a public image host so the
// vision model can reference it by URL.
package imghost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/fetch"
	"github.com/twojabajka/server/internal/infra"
)

// ErrNoPublicURL indicates the host accepted the upload but returned no
// usable URL. The orchestrator treats this as fatal for the submission.
var ErrNoPublicURL = errors.New("imghost: upload returned no public url")

// Options configures the ImgBB client.
type Options struct {
	APIKey     string
	UploadURL  string
	HTTPClient *resty.Client
	Logger     *infra.Logger
}

// Client uploads binary images to ImgBB.
type Client struct {
	apiKey    string
	uploadURL string
	http      *resty.Client
	logger    *infra.Logger
}

type uploadResponse struct {
	Data struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// NewClient constructs an ImgBB client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("imghost: api key is required")
	}
	uploadURL := strings.TrimSpace(opts.UploadURL)
	if uploadURL == "" {
		uploadURL = "https://api.imgbb.com/1/upload"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = fetch.NewClient(fetch.Options{Timeout: 20 * time.Second, Logger: opts.Logger})
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &Client{
		apiKey:    strings.TrimSpace(opts.APIKey),
		uploadURL: uploadURL,
		http:      httpClient,
		logger:    logger,
	}, nil
}

// Upload stores the image and returns its durable public URL.
func (c *Client) Upload(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("imghost: image is empty")
	}
	var decoded uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetFileReader("image", "photo.jpg", bytes.NewReader(image)).
		SetResult(&decoded).
		Post(c.uploadURL)
	if err != nil {
		return "", fmt.Errorf("imghost: upload request: %w", err)
	}
	if err := fetch.StatusError(resp); err != nil {
		return "", err
	}
	publicURL := strings.TrimSpace(decoded.Data.URL)
	if publicURL == "" {
		publicURL = strings.TrimSpace(decoded.Data.DisplayURL)
	}
	if publicURL == "" {
		return "", ErrNoPublicURL
	}
	c.logger.Debug().Str("url", publicURL).Int("bytes", len(image)).Msg("imghost: photo uploaded")
	return publicURL, nil
}
