// Package platformtest provides in-memory stand-ins for the platform
// interfaces. The stubs record every request so tests can assert on the
// exact parameters sent to AWS.
package platformtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

var (
	_ platform.SageMakerAPI = (*StubSageMaker)(nil)
	_ platform.RuntimeAPI   = (*StubRuntime)(nil)
	_ platform.ObjectStore  = (*MemoryStore)(nil)
)

// MemoryStore is an ObjectStore backed by a map keyed by s3:// URI.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// UploadErr, when set, is returned by every Upload.
	UploadErr error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Upload stores the body under uri.
func (s *MemoryStore) Upload(ctx context.Context, uri string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := platform.ParseS3URI(uri); err != nil {
		return err
	}
	if s.UploadErr != nil {
		return s.UploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.Put(uri, data)
	return nil
}

// Download writes the object at uri to w.
func (s *MemoryStore) Download(ctx context.Context, uri string, w io.WriterAt) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, ok := s.Get(uri)
	if !ok {
		return 0, fmt.Errorf("NoSuchKey: %s", uri)
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

// Put stores data under uri.
func (s *MemoryStore) Put(uri string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[uri] = bytes.Clone(data)
}

// Get returns a copy of the object at uri.
func (s *MemoryStore) Get(uri string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[uri]
	return bytes.Clone(data), ok
}

// Keys returns the stored URIs in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StubRuntime records InvokeEndpoint calls and answers with Response.
type StubRuntime struct {
	mu    sync.Mutex
	Calls []*sagemakerruntime.InvokeEndpointInput

	Response []byte
	Err      error
}

// InvokeEndpoint records params and returns the configured response.
func (r *StubRuntime) InvokeEndpoint(_ context.Context, params *sagemakerruntime.InvokeEndpointInput, _ ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, params)
	if r.Err != nil {
		return nil, r.Err
	}
	return &sagemakerruntime.InvokeEndpointOutput{
		Body:        r.Response,
		ContentType: aws.String("text/csv; charset=utf-8"),
	}, nil
}
