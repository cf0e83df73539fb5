package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

// visionBackend sends images to Google Cloud Vision TEXT_DETECTION.
type visionBackend struct {
	apiKey   string
	endpoint string
	limiter  *rate.Limiter
	logger   *slog.Logger

	newService func(ctx context.Context) (*vision.Service, error)
	once       sync.Once
	svc        *vision.Service
	svcErr     error
}

func newVisionBackend(cfg Config, logger *slog.Logger) *visionBackend {
	v := &visionBackend{
		apiKey:   strings.TrimSpace(cfg.VisionAPIKey),
		endpoint: cfg.VisionURL,
		logger:   logger,
	}
	if cfg.VisionRPS > 0 {
		v.limiter = rate.NewLimiter(rate.Limit(cfg.VisionRPS), 1)
	}
	v.newService = func(ctx context.Context) (*vision.Service, error) {
		opts := []option.ClientOption{option.WithAPIKey(v.apiKey)}
		if v.endpoint != "" {
			opts = append(opts, option.WithEndpoint(v.endpoint))
		}
		return vision.NewService(ctx, opts...)
	}
	return v
}

func (v *visionBackend) Name() string { return "google-vision" }

func (v *visionBackend) Remote() bool { return true }

func (v *visionBackend) Available() error {
	if v.apiKey == "" {
		return ErrNotConfigured
	}
	return nil
}

func (v *visionBackend) service(ctx context.Context) (*vision.Service, error) {
	v.once.Do(func() {
		v.svc, v.svcErr = v.newService(context.WithoutCancel(ctx))
	})
	return v.svc, v.svcErr
}

func (v *visionBackend) Recognize(ctx context.Context, doc entity.Document) (string, error) {
	if err := v.Available(); err != nil {
		return "", err
	}
	svc, err := v.service(ctx)
	if err != nil {
		return "", fmt.Errorf("vision client: %w", err)
	}
	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	b, err := doc.Bytes()
	if err != nil {
		return "", err
	}
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(b)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	resp, err := svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	r := resp.Responses[0]
	if r.Error != nil && (r.Error.Code != 0 || r.Error.Message != "") {
		return "", fmt.Errorf("vision annotate: code %d: %s", r.Error.Code, r.Error.Message)
	}
	if len(r.TextAnnotations) == 0 {
		return "", nil
	}
	// the first annotation carries the full text
	return strings.TrimSpace(r.TextAnnotations[0].Description), nil
}
