package publisher

import (
	"bytes"
	"context"
	"io"
)

// File is an attachment sent along with a post
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Reader returns a reader positioned at the start of the attachment
func (f File) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// Post is a message carrying one or more file attachments
type Post struct {
	Caption string
	Files   []File
}

// PromoField is a labeled line of a promotional message
type PromoField struct {
	Name   string
	Value  string
	Inline bool
}

// Promo is a structured message with a title, description, fields and footer
type Promo struct {
	Title       string
	Description string
	Color       int
	Fields      []PromoField
	Footer      string
}

// Publisher represents a messaging channel that collages are delivered to
type Publisher interface {
	// PublishCollage sends a post with its attachments
	PublishCollage(ctx context.Context, post Post) error

	// PublishPromo sends a structured promotional message
	PublishPromo(ctx context.Context, promo Promo) error

	// Close closes the publisher connection
	Close() error
}
