package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes caps downloaded and uploaded source images.
const MaxImageBytes = 10 << 20

// ErrNotImage is returned when bytes do not sniff as an image.
var ErrNotImage = errors.New("imagegen: content is not an image")

// DetectImageType sniffs data and returns its MIME type, or ErrNotImage.
func DetectImageType(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return mt.String(), nil
}

// Fetcher downloads source images over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher uses client, or a fresh http.Client when nil. Deadlines come from ctx.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client}
}

// Fetch downloads url and returns its bytes with a sniffed MIME type.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: building fetch request: %w", err)
	}
	req.Header.Set("User-Agent", "raave-outfit/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: fetching source image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("imagegen: fetching source image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: reading source image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("imagegen: source image exceeds %d bytes", MaxImageBytes)
	}
	if len(data) == 0 {
		return nil, "", errors.New("imagegen: source image is empty")
	}

	mime, err := DetectImageType(data)
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

// ParseDataURL decodes "data:image/png;base64,...." into bytes and MIME type.
// ok is false when s is not a data URL at all.
func ParseDataURL(s string) (data []byte, mime string, ok bool, err error) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return nil, "", false, nil
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return nil, "", true, errors.New("imagegen: data URL must be base64 encoded")
	}
	data, err = DecodeBase64(payload)
	if err != nil {
		return nil, "", true, err
	}
	mime, err = DetectImageType(data)
	if err != nil {
		return nil, "", true, err
	}
	return data, mime, true, nil
}

// DecodeBase64 accepts standard or raw (unpadded) base64 and enforces MaxImageBytes.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if base64.StdEncoding.DecodedLen(len(s)) > MaxImageBytes+3 {
		return nil, fmt.Errorf("imagegen: image exceeds %d bytes", MaxImageBytes)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("imagegen: invalid base64 image: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, errors.New("imagegen: image is empty")
	}
	return data, nil
}
