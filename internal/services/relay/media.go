package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// Payload is the finalized deliverable a forwarder sends: either text plus an
// attachment, or text alone.
type Payload struct {
	Text       string
	Attachment *domain.Attachment
}

// MediaRelay fetches message media from the source platform and packages it
// for the destination. It never returns an error: any fetch failure degrades
// to the media kind's text placeholder so the message still relays.
type MediaRelay struct {
	gateway GatewayAPI
}

// NewMediaRelay creates a new media relay
func NewMediaRelay(gateway GatewayAPI) *MediaRelay {
	return &MediaRelay{gateway: gateway}
}

// Prepare turns a classified action into a deliverable payload. Text-only
// actions pass through; media actions are downloaded and packaged, falling
// back to "{icon} [{Label}]" plus the caption when the fetch fails.
func (m *MediaRelay) Prepare(ctx context.Context, cfg *domain.ChannelConfig, action *domain.Action) *Payload {
	if action.Media == nil {
		return &Payload{Text: action.Content}
	}
	media := action.Media

	data, contentType, err := m.gateway.DownloadMedia(ctx, cfg, media)
	if err != nil {
		fetchErr := &domain.MediaFetchError{Kind: media.Kind, MediaID: media.ID, Err: err}
		logger.Base().Warn("Media fetch failed, degrading to text placeholder",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("media_kind", string(media.Kind)),
			zap.Error(fetchErr))
		return &Payload{Text: fallbackText(media)}
	}
	if len(data) == 0 {
		logger.Base().Warn("Media fetch returned empty body, degrading to text placeholder",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("media_id", media.ID))
		return &Payload{Text: fallbackText(media)}
	}

	mime := media.MimeType
	if mime == "" {
		mime = contentType
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(data).String()
	}

	return &Payload{
		Text: media.Caption,
		Attachment: &domain.Attachment{
			Data:     data,
			Filename: attachmentFilename(media, mime),
			MimeType: mime,
		},
	}
}

// fallbackText builds the degraded text form of an undeliverable attachment.
func fallbackText(media *domain.MediaDescriptor) string {
	text := media.Kind.FallbackText()
	if media.Caption != "" {
		text = text + "\n" + media.Caption
	}
	return text
}

// attachmentFilename picks a filename for the destination upload, deriving
// one from the media kind and MIME subtype when the source omits it.
func attachmentFilename(media *domain.MediaDescriptor, mime string) string {
	if media.Filename != "" {
		return media.Filename
	}
	ext := ""
	if m := mimetype.Lookup(mime); m != nil {
		ext = m.Extension()
	}
	if ext == "" {
		if i := strings.IndexByte(mime, '/'); i >= 0 && i < len(mime)-1 {
			ext = "." + mime[i+1:]
		}
	}
	name := media.ID
	if name == "" {
		name = string(media.Kind)
	}
	return fmt.Sprintf("%s%s", name, ext)
}
