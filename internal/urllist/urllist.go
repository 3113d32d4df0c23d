// Package urllist reads the input URL list and writes the survivors, on the
// local filesystem or in Cloud Storage.
package urllist

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/soft404-sweeper/internal/storage"
)

// RemoteDialer lazily opens the Cloud Storage provider the first time a
// gs:// path is used.
type RemoteDialer func(ctx context.Context) (storage.Provider, error)

// Lists routes each path to the local or remote provider.
type Lists struct {
	local  storage.Provider
	dial   RemoteDialer
	logger *zap.Logger

	mu     sync.Mutex
	remote storage.Provider
}

// New creates Lists. dial may be nil when gs:// paths are not supported.
func New(local storage.Provider, dial RemoteDialer, logger *zap.Logger) *Lists {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lists{local: local, dial: dial, logger: logger}
}

// Read returns the URLs in path, one per line. Surrounding whitespace is
// trimmed; blank lines and lines starting with '#' are skipped.
func (l *Lists) Read(ctx context.Context, path string) ([]string, error) {
	p, err := l.provider(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := p.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	urls := Parse(data)
	l.logger.Debug("url list loaded", zap.String("path", path), zap.Int("urls", len(urls)))
	return urls, nil
}

// Write replaces path with urls, each newline-terminated.
func (l *Lists) Write(ctx context.Context, path string, urls []string) error {
	p, err := l.provider(ctx, path)
	if err != nil {
		return err
	}
	if err := p.Write(ctx, path, Format(urls)); err != nil {
		return fmt.Errorf("write url list: %w", err)
	}
	l.logger.Debug("url list written", zap.String("path", path), zap.Int("urls", len(urls)))
	return nil
}

// Remove deletes path if it exists.
func (l *Lists) Remove(ctx context.Context, path string) error {
	p, err := l.provider(ctx, path)
	if err != nil {
		return err
	}
	if err := p.Remove(ctx, path); err != nil {
		return fmt.Errorf("remove url list: %w", err)
	}
	return nil
}

// Close releases the remote provider if one was opened.
func (l *Lists) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	closer, ok := l.remote.(io.Closer)
	l.remote = nil
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("close cloud storage: %w", err)
	}
	return nil
}

func (l *Lists) provider(ctx context.Context, path string) (storage.Provider, error) {
	if !storage.IsGCSPath(path) {
		if l.local == nil {
			return nil, fmt.Errorf("no local storage configured for %q", path)
		}
		return l.local, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remote != nil {
		return l.remote, nil
	}
	if l.dial == nil {
		return nil, fmt.Errorf("cloud storage is not configured for %q", path)
	}
	remote, err := l.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("open cloud storage: %w", err)
	}
	l.remote = remote
	return remote, nil
}

// Parse splits data into URLs. Lines have no length limit, so a malformed
// line never hides the ones after it.
func Parse(data []byte) []string {
	var urls []string
	r := bufio.NewReader(bytes.NewReader(data))
	for {
		line, err := r.ReadString('\n')
		if u := strings.TrimSpace(line); u != "" && !strings.HasPrefix(u, "#") {
			urls = append(urls, u)
		}
		if err != nil {
			return urls
		}
	}
}

// Format joins urls with a trailing newline after each one.
func Format(urls []string) []byte {
	var buf bytes.Buffer
	for _, u := range urls {
		buf.WriteString(u)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
