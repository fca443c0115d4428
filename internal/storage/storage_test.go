package storage

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func TestUploaderDisabled(t *testing.T) {
	u := NewUploader(S3Config{})
	if u.Enabled() {
		t.Error("expected disabled without credentials")
	}

	_, err := u.UploadPhoto(context.Background(), 1, "image/jpeg", strings.NewReader("x"), 1)
	if err == nil {
		t.Error("expected error for disabled uploader")
	}
}

func TestUploadPhotoRoundTrip(t *testing.T) {
	mock := newMockS3()
	u := &Uploader{cfg: S3Config{Bucket: "test"}, client: mock}

	content := "fake jpeg bytes"
	key, err := u.UploadPhoto(context.Background(), 3, "image/jpeg", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(key, "3/photos/") {
		t.Errorf("key = %q, want 3/photos/ prefix", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key = %q, want .jpg suffix", key)
	}

	body, err := u.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer body.Close()
	got, _ := io.ReadAll(body)
	if string(got) != content {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestUploadPhotoUniqueKeys(t *testing.T) {
	mock := newMockS3()
	u := &Uploader{cfg: S3Config{Bucket: "test"}, client: mock}

	k1, err := u.UploadPhoto(context.Background(), 1, "image/png", strings.NewReader("a"), 1)
	if err != nil {
		t.Fatalf("upload 1: %v", err)
	}
	k2, err := u.UploadPhoto(context.Background(), 1, "image/png", strings.NewReader("b"), 1)
	if err != nil {
		t.Fatalf("upload 2: %v", err)
	}
	if k1 == k2 {
		t.Error("expected distinct keys for separate uploads")
	}
}

func TestUploadPhotoRejectsContentType(t *testing.T) {
	mock := newMockS3()
	u := &Uploader{cfg: S3Config{Bucket: "test"}, client: mock}

	if _, err := u.UploadPhoto(context.Background(), 1, "application/pdf", strings.NewReader("x"), 1); err == nil {
		t.Error("expected error for unsupported content type")
	}
}

func TestDelete(t *testing.T) {
	mock := newMockS3()
	u := &Uploader{cfg: S3Config{Bucket: "test"}, client: mock}

	key, err := u.UploadPhoto(context.Background(), 1, "image/webp", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := u.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := u.Open(context.Background(), key); err == nil {
		t.Error("expected error opening deleted object")
	}
}
