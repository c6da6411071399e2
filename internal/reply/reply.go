// Package reply delivers extraction results to a chat user: a notice when a
// photo held no documents, otherwise one image message per document.
package reply

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// NoDocumentsText is sent when a photo yields no documents.
const NoDocumentsText = "No documents were found in your photo."

// Messenger is the outbound side of a messaging platform.
type Messenger interface {
	PushText(ctx context.Context, to, text string) error
	PushImage(ctx context.Context, to, imageURL, previewURL string) error
}

// URLFunc turns a stored document handle into a URL the recipient can fetch.
type URLFunc func(handle string) (string, error)

// Deliver sends the result of one extraction to a recipient. With no
// handles a single NoDocumentsText message is pushed; otherwise one image
// message per handle, in order.
//
// A failure for one image does not stop the rest. It returns how many
// messages were pushed and the joined errors.
func Deliver(ctx context.Context, m Messenger, to string, handles []string, urlFor URLFunc) (int, error) {
	if len(handles) == 0 {
		if err := m.PushText(ctx, to, NoDocumentsText); err != nil {
			return 0, fmt.Errorf("failed to push notice: %w", err)
		}
		return 1, nil
	}

	sent := 0
	var errs []error
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		u, err := urlFor(h)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to build url for %s: %w", h, err))
			continue
		}
		if err := m.PushImage(ctx, to, u, u); err != nil {
			errs = append(errs, fmt.Errorf("failed to push %s: %w", h, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// ImageURLs returns a URLFunc for handles stored below root and served as
// <base>/image/<id>, where id is the handle's slash-separated path relative
// to root. With an empty base the handle itself is returned.
func ImageURLs(base, root string) URLFunc {
	base = strings.TrimRight(base, "/")
	return func(handle string) (string, error) {
		if base == "" {
			return handle, nil
		}
		rel, err := filepath.Rel(root, handle)
		if err != nil {
			return "", err
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return "", fmt.Errorf("handle %s is outside %s", handle, root)
		}

		parts := strings.Split(rel, "/")
		for i, p := range parts {
			parts[i] = url.PathEscape(p)
		}
		return base + path.Join("/image", strings.Join(parts, "/")), nil
	}
}

// LogMessenger writes every message to a logger instead of a chat platform.
type LogMessenger struct {
	Log logrus.FieldLogger
}

func (l *LogMessenger) PushText(ctx context.Context, to, text string) error {
	l.Log.WithFields(logrus.Fields{"to": to, "kind": "text"}).Info(text)
	return nil
}

func (l *LogMessenger) PushImage(ctx context.Context, to, imageURL, previewURL string) error {
	l.Log.WithFields(logrus.Fields{
		"to":      to,
		"kind":    "image",
		"url":     imageURL,
		"preview": previewURL,
	}).Info("document ready")
	return nil
}
